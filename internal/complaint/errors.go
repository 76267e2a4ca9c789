package complaint

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by Service wraps exactly one of them,
// so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("complaint not found")
	ErrPersistence = errors.New("persistence error")
	ErrSync        = errors.New("sync error")
)

// Validation refinements.
var (
	ErrEmptyText         = fmt.Errorf("%w: complaint text is empty", ErrValidation)
	ErrEmptyResponse     = fmt.Errorf("%w: response text is empty", ErrValidation)
	ErrRatingRange       = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrNotResolved       = fmt.Errorf("%w: only resolved complaints can be rated", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrValidation)
	ErrUnknownStatus     = fmt.Errorf("%w: unknown status", ErrValidation)
	ErrUnknownLanguage   = fmt.Errorf("%w: unsupported language", ErrValidation)
)
