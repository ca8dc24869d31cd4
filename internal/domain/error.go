package domain

import "errors"

var (
	// Common domain errors
	ErrSessionNotFound   = errors.New("analysis session not found")
	ErrCapacityExceeded  = errors.New("session registry at capacity")
	ErrEmptyBatch        = errors.New("no queries submitted")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCancelled         = errors.New("analysis cancelled")
	ErrReadOnlyViolation = errors.New("only read-only queries are allowed")
	ErrNoAIProvider      = errors.New("no AI provider configured")
	ErrToolsUnsupported  = errors.New("adapter does not support tool calls")
)
