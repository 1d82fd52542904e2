package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrRemoteService      = errors.New("remote service unavailable")
	ErrValidation         = errors.New("validation failed")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStockConflict      = errors.New("stock changed concurrently")
	ErrPersistence        = errors.New("persistence failed")
	ErrNotFound           = errors.New("not found")
	ErrEmptyCatalog       = errors.New("no valid products")
	ErrInvalidDestination = errors.New("invalid destination")
)

// A RowError describes a record store row that failed validation.
type RowError struct {
	Row   int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: field %q: %v", e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}
