package models

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err with the failed operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
