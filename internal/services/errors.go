package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageRead marks a failed or undecodable read of the collection.
	ErrStorageRead = errors.New("storage read failed")
	// ErrStorageWrite marks a failed write of the collection.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("transaction store closed")
)

// ValidationError rejects a draft. It wraps one of the core sentinel errors
// and guarantees no state changed.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
