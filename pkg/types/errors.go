package types

import "errors"

// Domain errors for chunk validation
var (
	ErrMissingFilepath = errors.New("chunk filepath is required")
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrInvalidSpan     = errors.New("line span must be positive and ordered")
)
