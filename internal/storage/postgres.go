package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresConfig struct {
	DatabaseURL     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// PostgresStore keeps records in the documents table. Rows past expires_at are invisible to reads
// and removed by later writes.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database and applies any pending migrations.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	if err := migrate(pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// migrate applies the embedded goose migrations.
func migrate(pool *pgxpool.Pool, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// gooseLogger sends goose output to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
	os.Exit(1)
}

func (s *PostgresStore) Put(ctx context.Context, id string, record Record, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	now := s.now()
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE expires_at <= $1`, now); err != nil {
		return fmt.Errorf("failed to remove expired records: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, record, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, expires_at = EXCLUDED.expires_at`,
		id, data, now.Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", id, err)
	}
	return nil
}

// Fill relies on the row lock taken by UPDATE: a fill waiting on a concurrent one re-checks the
// record after it commits and matches no row.
func (s *PostgresStore) Fill(ctx context.Context, id string, record Record, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	now := s.now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET record = $2, expires_at = $3
		WHERE id = $1 AND expires_at > $4 AND record->'document' IS NULL`,
		id, data, now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("failed to fill record %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyStored
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM documents WHERE id = $1 AND expires_at > $2`,
		id, s.now(),
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
