package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/logging"
)

const maxConflictRetries = 10

// BadgerStore persists preferences in an embedded badger database.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerStore opens (or creates) the database in dir. An empty dir keeps
// the database in memory.
func NewBadgerStore(dir string, logger *zap.Logger) (*BadgerStore, error) {
	logger = logging.OrNop(logger).Named("prefs")
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create prefs directory %s: %w", dir, err)
	}
	opts = opts.
		WithLogger(logging.NewBadgerLogger(logger)).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database at %q: %w", dir, err)
	}
	logger.Debug("prefs database opened", zap.String("dir", dir))
	return &BadgerStore{db: db, logger: logger}, nil
}

// Get reads key.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return out, true, nil
}

// Set writes key.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger database: %w", err)
	}
	return nil
}

// update retries transactions that lose an MVCC conflict.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("badger transaction conflict, retrying", zap.Int("attempt", i+1))
	}
	return fmt.Errorf("badger transaction conflict not resolved after %d retries", maxConflictRetries)
}
