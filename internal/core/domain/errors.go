// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two non-validation failure categories. Handlers
// translate these with errors.Is: ErrNotFound to 404 and
// ErrInsufficientStock to 422. A validation failure is a *ValidationError
// and maps to 400, so callers can always tell bad input apart from valid
// input the ledger rejects.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError marks malformed input detected before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InsufficientStockError wraps ErrInsufficientStock with the totals that
// caused the rejection.
type InsufficientStockError struct {
	ProductID int64
	Purchased int64
	Sold      int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: purchased=%d sold=%d requested=%d",
		e.ProductID, e.Purchased, e.Sold, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
