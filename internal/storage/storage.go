// Package storage keeps encrypted documents for the storage API.
//
// Four backends are available, selected with STORAGE_BACKEND:
//   - memory: process local, for development and tests
//   - redis: shared between instances, expiry handled by redis
//   - badger: embedded on disk store, expiry handled by badger entry TTLs
//   - postgres: the documents table, created by the embedded goose migrations
//
// Records are written whole and expire after the TTL given to Put. Only encrypted payloads are
// persisted, except for queued slots which hold the key the document will be encrypted with.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
)

var (
	// ErrNotFound is returned when the id is unknown or the record has expired.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyStored is returned by Fill when the slot already holds a document.
	ErrAlreadyStored = errors.New("document already stored")
)

// fillAttempts bounds the retries of a fill that lost a write conflict.
const fillAttempts = 3

// Record is a stored document or a queued slot waiting for one.
type Record struct {
	Document *crypto.EncryptedPayload `json:"document,omitempty"`

	// Key is only set on queued slots: it is the key the document will be encrypted with.
	Key string `json:"key,omitempty"`
}

// Queued reports whether the record is a reserved slot without a document.
func (r Record) Queued() bool {
	return r.Document == nil
}

// Store is implemented by each backend.
type Store interface {
	Put(ctx context.Context, id string, record Record, ttl time.Duration) error

	// Fill replaces a queued slot with record in one atomic step. Only one of any number of
	// concurrent fills of the same slot succeeds, the others get ErrAlreadyStored.
	Fill(ctx context.Context, id string, record Record, ttl time.Duration) error

	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	BadgerDir string

	Postgres PostgresConfig
}

// New creates the configured backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "memory", "":
		logger.Info("using in-memory document storage")
		return NewMemoryStore(), nil
	case "redis":
		logger.Info("using redis document storage", slog.String("addr", cfg.RedisAddr))
		return NewRedisStore(ctx, RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	case "badger":
		logger.Info("using badger document storage", slog.String("dir", cfg.BadgerDir))
		return NewBadgerStore(cfg.BadgerDir)
	case "postgres":
		logger.Info("using postgres document storage")
		return NewPostgresStore(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func encodeRecord(record Record) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be greater than 0")
	}
	return nil
}
