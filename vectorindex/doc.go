// Package vectorindex is a flat, exhaustively-scanned vector index over the
// current chunk generation.
//
// Exhaustive scan keeps retrieval exact and the artifact trivially
// rebuildable; at the corpus sizes this system handles (thousands of
// chunks, not millions) approximate structures buy nothing. The index and
// its row-to-chunk-id mapping are one artifact, rebuilt wholesale after
// every embedding pass.
package vectorindex
