// Package chunker cuts extracted documents into bounded, chapter-attributed
// chunks for embedding.
//
// Splitting prefers natural boundaries (paragraph, line, sentence, word),
// merges greedily toward a target token budget, and carries a
// boundary-snapped overlap between consecutive chunks. Text that no
// boundary can tame falls back to fixed token windows, so the hard maximum
// always holds. All sizes are measured through a TokenCodec so budgets line
// up with the embedding model's tokenizer.
package chunker
