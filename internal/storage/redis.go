package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of redis operations used by RedisStore.
type redisClient interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error

	// Update replaces the value of an existing key with the result of update, failing if the key
	// changes between the read and the write.
	Update(ctx context.Context, key string, expiration time.Duration, update func(current []byte) ([]byte, error)) error

	Ping(ctx context.Context) error
	Close() error
}

// goRedisClient implements redisClient with go-redis.
type goRedisClient struct {
	client *redis.Client
}

func (c *goRedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *goRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (c *goRedisClient) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Update uses WATCH and MULTI, retrying when another client touched the key first.
func (c *goRedisClient) Update(ctx context.Context, key string, expiration time.Duration, update func(current []byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err := update(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, expiration)
			return nil
		})
		return err
	}

	var err error
	for range fillAttempts {
		err = c.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (c *goRedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *goRedisClient) Close() error {
	return c.client.Close()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces the document keys, e.g. "docverifier:document:"
	KeyPrefix string
}

// RedisStore stores records as JSON strings, expiry is set with SET EX.
type RedisStore struct {
	client    redisClient
	keyPrefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisStore(&goRedisClient{client: client}, cfg.KeyPrefix), nil
}

func newRedisStore(client redisClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

func (s *RedisStore) Put(ctx context.Context, id string, record Record, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl); err != nil {
		return fmt.Errorf("failed to store record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Fill(ctx context.Context, id string, record Record, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	err = s.client.Update(ctx, s.key(id), ttl, func(current []byte) ([]byte, error) {
		existing, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		if !existing.Queued() {
			return nil, ErrAlreadyStored
		}
		return data, nil
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyStored) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to fill record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(id))
	if errors.Is(err, ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx) }
func (s *RedisStore) Close() error                   { return s.client.Close() }
