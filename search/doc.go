// Package search answers semantic queries over the indexed chunk corpus:
// embed the query, rank by cosine similarity, filter by metadata, hydrate
// the survivors from the chunk store.
//
// The package also carries the session retry guard that stops an agent
// from re-running the same failing query indefinitely.
package search
