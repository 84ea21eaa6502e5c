// Package sheets declares the outbound ports of the spreadsheet mirror.
package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one transaction as a spreadsheet row.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionIndex lists the ids already mirrored for a year, so
	// redelivered events are not appended twice.
	TransactionIndex interface {
		ListTransactionIDs(ctx context.Context, year int) ([]string, error)
	}

	Mirror interface {
		TransactionWriter
		TransactionIndex
	}
)
