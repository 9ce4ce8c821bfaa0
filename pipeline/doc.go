// Package pipeline orchestrates ingestion end to end: registry sync, text
// extraction, document classification, chapter mapping, exam coverage,
// chunking, embedding, and index rebuild.
//
// Every stage is a cache-aware controller: work runs only when a file's
// stage artifact is missing or was produced against an older content hash.
// Per-file failures are recorded on the result and the batch continues;
// one broken document never blocks the rest of the corpus.
package pipeline
