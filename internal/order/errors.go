package order

import (
	"errors"
	"fmt"
)

var ErrDuplicateOrder = errors.New("order already exists for idempotency key")

// PersistenceError is a storage failure the caller may retry. Retrying is safe
// because creation is keyed on the idempotency key.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist order (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
