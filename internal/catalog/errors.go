package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRequest       = errors.New("no items to check out")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrTooManyItems       = errors.New("too many line items")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// ValidationError names the offending product, when there is one.
type ValidationError struct {
	Err       error
	ProductID string
}

func (e *ValidationError) Error() string {
	if e.ProductID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.ProductID)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, productID string) *ValidationError {
	return &ValidationError{Err: err, ProductID: productID}
}
