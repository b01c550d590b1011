package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStore stores records in an embedded badger database using entry TTLs for expiry.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the database in dir. An empty dir opens an in-memory database.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(ctx context.Context, id string, record Record, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(id), data).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Fill(ctx context.Context, id string, record Record, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	fill := func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		existing, err := decodeRecord(current)
		if err != nil {
			return err
		}
		if !existing.Queued() {
			return ErrAlreadyStored
		}
		return txn.SetEntry(badger.NewEntry([]byte(id), data).WithTTL(ttl))
	}

	for range fillAttempts {
		err = s.db.Update(fill)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyStored) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to fill record %s: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (Record, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger database is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
