// Package chunkstore persists chunks as an append-only JSONL ledger plus a
// derived metadata index.
//
// Appends are generational: re-chunking a file writes a complete new
// generation tagged with a higher ingest run, and readers keep only the
// highest run per file. History stays in the file until Compact rewrites
// it, so a crashed run never corrupts earlier generations.
package chunkstore
