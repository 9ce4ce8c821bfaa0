package search

import "errors"

var (
	// ErrEmptyQuery indicates a query with no content after trimming.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrTooManyAttempts indicates the session's retry ceiling was hit for
	// the current query.
	ErrTooManyAttempts = errors.New("too many attempts for this query")
)
