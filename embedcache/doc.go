// Package embedcache caches embedding vectors in BadgerDB, keyed by
// embedding model and content hash.
//
// The cache is the only component that talks to the embedding service.
// Identical chunk text embeds at most once per model; re-running ingestion
// over unchanged content costs cache reads only. Missing vectors are
// computed in batches through a bounded worker pool with retry and
// persisted before the call returns.
package embedcache
