package embedcache

import "errors"

var (
	// ErrCorruptVector indicates a cached value that is not a valid vector
	// frame.
	ErrCorruptVector = errors.New("corrupt cached vector")

	// ErrInvalidMaxAttempts indicates a retry configuration with no
	// attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
