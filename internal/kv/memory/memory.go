// Package memory keeps the key-value data in process. Built with
// NewFromDir it also writes the transaction collection back to a JSON file
// so it survives restarts.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"budget/internal/kv"
)

// SeedFile is read from the data directory to pre-populate the collection,
// and rewritten whenever the collection is saved.
const SeedFile = "transactions.json"

type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	// dir, when set, receives every write of the transactions key.
	dir string
}

var _ kv.Store = (*Store)(nil)

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewFromDir seeds the transactions key from <base>/transactions.json when
// the file exists; a missing file yields an empty store. Later writes of the
// key are written back to the same file.
func NewFromDir(base string) *Store {
	s := New()
	s.dir = base
	if data, err := os.ReadFile(filepath.Join(base, SeedFile)); err == nil && len(data) > 0 {
		s.values[kv.TransactionsKey] = data
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" && key == kv.TransactionsKey {
		if err := writeFileAtomic(filepath.Join(s.dir, SeedFile), value); err != nil {
			return fmt.Errorf("write %s: %w", SeedFile, err)
		}
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// writeFileAtomic replaces path through a temp file in the same directory so
// a crash never leaves a truncated collection behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(context.Context) error {
	if s.dir == "" {
		return nil
	}
	info, err := os.Stat(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		// Created on the first write.
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dir)
	}
	return nil
}
