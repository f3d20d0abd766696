package domain

import "errors"

var (
	// ErrInvalidInput rejects malformed or out-of-range raw attributes
	// before any feature is derived.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFeatureMismatch means the derived vector is missing a feature the
	// classifier was trained with. Training/serving skew; always loud.
	ErrFeatureMismatch = errors.New("feature mismatch")

	// ErrNotFound is an expected lookup miss, recoverable by the caller.
	ErrNotFound = errors.New("not found")

	// ErrPersistence is an I/O failure writing a source. Surfaced, never
	// retried automatically, never leaves a partial row behind.
	ErrPersistence = errors.New("persistence failure")

	// ErrSourceUnavailable marks a source file missing or corrupt at load
	// time. The store degrades to whatever source is readable.
	ErrSourceUnavailable = errors.New("source unavailable")
)
