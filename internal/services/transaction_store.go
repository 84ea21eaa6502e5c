// Package services holds the stateful application services: the in-memory
// transaction store backed by a key-value port and the cached dashboard.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/kv"
	"budget/internal/log"
)

// EventPublisher announces committed transactions to other processes.
type EventPublisher interface {
	PublishTransactionAdded(ctx context.Context, tx core.Transaction, version uint64) error
}

// IDGenerator returns a fresh unique transaction identifier.
type IDGenerator func() string

// Snapshot is an immutable view of the collection at one version.
type Snapshot struct {
	Version      uint64
	Transactions []core.Transaction
}

// AddResult describes a committed add. Persisted is false when the
// transaction lives in memory only because the write failed.
type AddResult struct {
	Transaction core.Transaction
	Persisted   bool
	WriteErr    error
}

// StoreOption configures a TransactionStore.
type StoreOption func(*TransactionStore)

func WithLogger(l *log.Logger) StoreOption {
	return func(s *TransactionStore) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentStore)
		}
	}
}

func WithPublisher(p EventPublisher) StoreOption {
	return func(s *TransactionStore) { s.publisher = p }
}

func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *TransactionStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// TransactionStore owns the transaction collection. Mutations are serialized
// and each one rewrites the whole collection under kv.TransactionsKey.
type TransactionStore struct {
	kv        kv.Store
	logger    *log.Logger
	publisher EventPublisher
	newID     IDGenerator

	mu      sync.Mutex
	txs     []core.Transaction
	version uint64
	dirty   bool
	// unpublished holds transactions whose event waits for a successful write.
	unpublished []core.Transaction

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

func NewTransactionStore(store kv.Store, opts ...StoreOption) *TransactionStore {
	s := &TransactionStore{
		kv:     store,
		logger: log.Discard(),
		newID:  newUUID,
		subs:   make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load replaces the collection with what the backend holds. A missing key,
// read failure or corrupt payload all yield an empty collection; the
// failure is logged and never returned.
func (s *TransactionStore) Load(ctx context.Context) Snapshot {
	txs, err := s.read(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Falling back to empty transaction collection",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		txs = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = txs
	s.version++
	s.dirty = false
	s.unpublished = nil
	snap := s.snapshotLocked()
	s.notify(snap)

	s.logger.InfoContext(ctx, "Transactions loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldCount, len(txs),
		log.FieldVersion, snap.Version)
	return snap
}

func (s *TransactionStore) read(ctx context.Context) ([]core.Transaction, error) {
	data, err := s.kv.Get(ctx, kv.TransactionsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	txs, err := kv.DecodeTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	return txs, nil
}

// Add validates the draft, appends the resulting transaction and persists the
// collection. Invalid drafts return *ValidationError and change nothing. A
// failed write keeps the in-memory append and is reported via AddResult.
// Events are only published for transactions that reached storage; those
// held back by a failed write go out after the next successful one.
func (s *TransactionStore) Add(ctx context.Context, d core.Draft) (AddResult, error) {
	if err := d.Validate(); err != nil {
		return AddResult{}, &ValidationError{Err: err}
	}

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		return AddResult{}, ErrStoreClosed
	}

	tx, err := core.NewTransaction(s.newID(), d)
	if err != nil {
		s.mu.Unlock()
		return AddResult{}, &ValidationError{Err: err}
	}

	s.txs = append(s.txs, tx)
	s.version++
	writeErr := s.persistLocked(ctx)
	var events []core.Transaction
	if writeErr == nil {
		events = append(s.takeUnpublishedLocked(), tx)
	} else {
		s.unpublished = append(s.unpublished, tx)
	}
	snap := s.snapshotLocked()
	s.notify(snap)
	s.mu.Unlock()

	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpAdd)
	if writeErr != nil {
		s.logger.WarnContext(ctx, "Transaction kept in memory only",
			append(fields.WithError(writeErr).ToSlice(), log.FieldVersion, snap.Version)...)
	} else {
		s.logger.InfoContext(ctx, "Transaction added",
			append(fields.ToSlice(), log.FieldVersion, snap.Version)...)
	}

	s.publish(ctx, events, snap.Version)

	return AddResult{Transaction: tx, Persisted: writeErr == nil, WriteErr: writeErr}, nil
}

func (s *TransactionStore) persistLocked(ctx context.Context) error {
	data, err := kv.EncodeTransactions(s.txs)
	if err == nil {
		err = s.kv.Set(ctx, kv.TransactionsKey, data)
	}
	if err != nil {
		s.dirty = true
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.dirty = false
	return nil
}

func (s *TransactionStore) takeUnpublishedLocked() []core.Transaction {
	pending := s.unpublished
	s.unpublished = nil
	return pending
}

// publish sends one event per transaction, in order. Failures are logged;
// the mirror worker's backfill picks up anything lost.
func (s *TransactionStore) publish(ctx context.Context, txs []core.Transaction, version uint64) {
	if s.publisher == nil {
		return
	}
	for _, tx := range txs {
		if err := s.publisher.PublishTransactionAdded(ctx, tx, version); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish transaction event",
				log.FieldOperation, log.OpPublish,
				log.FieldTxID, tx.ID,
				log.FieldError, err)
		}
	}
}

// Dirty reports whether memory holds transactions the backend has not seen.
func (s *TransactionStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush rewrites the collection if a previous write failed, then publishes
// the events that were held back.
func (s *TransactionStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	if err := s.persistLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	events := s.takeUnpublishedLocked()
	version, count := s.version, len(s.txs)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Pending transactions flushed",
		log.FieldOperation, log.OpPersist,
		log.FieldCount, count)
	s.publish(ctx, events, version)
	return nil
}

// Snapshot returns a private copy of the current collection.
func (s *TransactionStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *TransactionStore) snapshotLocked() Snapshot {
	txs := slices.Clone(s.txs)
	if txs == nil {
		txs = []core.Transaction{}
	}
	return Snapshot{Version: s.version, Transactions: txs}
}

// Subscribe returns a channel that always holds the latest snapshot; a slow
// reader only ever sees the newest one. The current snapshot is delivered
// immediately. Calling cancel closes the channel.
func (s *TransactionStore) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- snap
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

func (s *TransactionStore) notify(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *TransactionStore) isClosed() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.closed
}

// Close ends every subscription. Later adds fail with ErrStoreClosed.
func (s *TransactionStore) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
