// Package kv defines the key-value port the transaction store persists
// through, along with the serialized layout of the transaction collection.
package kv

import (
	"context"
	"errors"
)

// TransactionsKey holds the full serialized transaction collection.
const TransactionsKey = "transactions"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Ports for persistence adapters.
type (
	Reader interface {
		Get(ctx context.Context, key string) ([]byte, error)
	}

	Writer interface {
		Set(ctx context.Context, key string, value []byte) error
	}

	Store interface {
		Reader
		Writer
	}
)
