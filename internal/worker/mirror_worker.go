// Package worker mirrors committed transactions into the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/sheets"
)

// MirrorWorker appends each transaction to the spreadsheet exactly once. The
// set of mirrored ids is read lazily per year and kept in memory, so
// redelivered events are acknowledged without a second row.
type MirrorWorker struct {
	sheets sheets.Mirror
	logger *log.Logger

	mu    sync.Mutex
	known map[int]map[string]struct{}
}

func NewMirrorWorker(mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		sheets: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
		known:  make(map[int]map[string]struct{}),
	}
}

// HandleTransactionAdded is the amqp.Handler for transaction.added events.
func (w *MirrorWorker) HandleTransactionAdded(ctx context.Context, msg *amqp.TransactionAddedMessage) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldTxID, msg.Transaction.ID,
		log.FieldVersion, msg.Version)

	mirrored, err := w.mirror(ctx, msg.Transaction)
	if err != nil {
		return fmt.Errorf("mirror transaction %s: %w", msg.Transaction.ID, err)
	}
	if !mirrored {
		w.logger.DebugContext(ctx, "Transaction already mirrored", log.FieldTxID, msg.Transaction.ID)
	}
	return nil
}

// Backfill mirrors every transaction missing from the spreadsheet, in order.
// It covers events lost while the worker or broker was down.
func (w *MirrorWorker) Backfill(ctx context.Context, txs []core.Transaction) (int, error) {
	added := 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		ok, err := w.mirror(ctx, tx)
		if err != nil {
			return added, fmt.Errorf("backfill transaction %s: %w", tx.ID, err)
		}
		if ok {
			added++
		}
	}
	if added > 0 {
		w.logger.InfoContext(ctx, "Backfill complete", log.FieldCount, added)
	}
	return added, nil
}

// mirror reports whether a new row was written.
func (w *MirrorWorker) mirror(ctx context.Context, tx core.Transaction) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	year := tx.Date.Year()
	ids, err := w.idsFor(ctx, year)
	if err != nil {
		return false, err
	}
	if _, ok := ids[tx.ID]; ok {
		return false, nil
	}

	if _, err := w.sheets.AppendTransaction(ctx, tx); err != nil {
		return false, err
	}
	ids[tx.ID] = struct{}{}
	return true, nil
}

func (w *MirrorWorker) idsFor(ctx context.Context, year int) (map[string]struct{}, error) {
	if ids, ok := w.known[year]; ok {
		return ids, nil
	}
	list, err := w.sheets.ListTransactionIDs(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list mirrored ids for %d: %w", year, err)
	}
	ids := make(map[string]struct{}, len(list))
	for _, id := range list {
		ids[id] = struct{}{}
	}
	w.known[year] = ids
	return ids, nil
}
