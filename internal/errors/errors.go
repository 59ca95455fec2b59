package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an access code or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOrder is returned when an order already exists for a
	// payment session reference. Callers treat it as an already-processed
	// event, not a failure.
	ErrDuplicateOrder = errors.New("order already exists for session")

	// ErrDuplicateCode is returned on an access code collision so the
	// issuer can generate a fresh one.
	ErrDuplicateCode = errors.New("access code already exists")
)

// ValidationError rejects a malformed cart or claim before pricing.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidation builds a ValidationError from a format string.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CapacityError rejects a cart that would take a show over its cap.
type CapacityError struct {
	ShowName  string
	Requested int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s is sold out: %d tickets requested, %d remaining", e.ShowName, e.Requested, e.Remaining)
}

// ProviderError wraps a payment provider failure.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
