package chunker

import "errors"

var (
	// ErrInvalidConfig indicates inconsistent token budgets.
	ErrInvalidConfig = errors.New("invalid chunker config")

	// ErrNoPages indicates the extracted document has no usable pages.
	ErrNoPages = errors.New("document has no pages")
)
