package sat

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrModelNotFound indicates the model file does not exist.
	ErrModelNotFound = errors.New("sat: model file not found")

	// ErrInvalidModel indicates the model file exists but cannot be loaded.
	ErrInvalidModel = errors.New("sat: invalid model format")

	// ErrTokenizerFailed indicates tokenizer initialization failed.
	ErrTokenizerFailed = errors.New("sat: tokenizer initialization failed")

	// ErrPoolClosed is returned when acquiring from a closed session pool.
	ErrPoolClosed = errors.New("sat: session pool closed")
)
