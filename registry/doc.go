// Package registry tracks every known source file's identity, content hash,
// and per-stage freshness. It is the single source of truth for what needs
// (re)processing.
//
// The registry document is persisted as versioned JSON and written
// atomically (temp file + rename), so a concurrent reader never observes a
// partially written registry. Reconciliation never deletes entries: files
// that disappear from the uploads root are retained as-is.
package registry
