// Package extract turns source documents into cached per-page text.
//
// Extraction is the only stage that reads the uploads directory; everything
// downstream consumes the cached artifacts this package writes, so a
// document is read from disk at most once per content revision.
package extract
