package versioning

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// Validation reasons.
var (
	ErrEmptyFile            = errors.New("file is empty")
	ErrFilenameRequired     = errors.New("filename is required")
	ErrExtensionNotAllowed  = errors.New("file extension is not allowed")
	ErrFileTooLarge         = errors.New("file exceeds the maximum size")
	ErrOrganizationRequired = errors.New("organization id is required")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidDocumentID    = errors.New("invalid document id")
	ErrPriorKeyRequired     = errors.New("prior object key is required to version an existing document")
	ErrPriorKeyMismatch     = errors.New("prior object key does not belong to the document")
)

// ValidationError rejects a single request before anything is written.
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", ErrValidation, e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(reason error, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
