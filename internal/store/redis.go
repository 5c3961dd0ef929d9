package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

const defaultRedisPrefix = "einvoice:invoice:"

// RedisStore implements Store with one JSON value per invoice number.
// Keys never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(number string) string {
	return s.prefix + number
}

// Exists implements Store.
func (s *RedisStore) Exists(ctx context.Context, number string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(number)).Result()
	if err != nil {
		return false, fmt.Errorf("checking invoice %s: %w", number, err)
	}
	return n > 0, nil
}

// Commit implements Store. SETNX keeps the first record.
func (s *RedisStore) Commit(ctx context.Context, inv *domain.Invoice) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding invoice %s: %w", inv.Number, err)
	}

	ok, err := s.client.SetNX(ctx, s.key(inv.Number), data, 0).Result()
	if err != nil {
		return fmt.Errorf("committing invoice %s: %w", inv.Number, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyCommitted, inv.Number)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, number string) (*domain.Invoice, error) {
	raw, err := s.client.Get(ctx, s.key(number)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("getting invoice %s: %w", number, err)
	}

	var inv domain.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decoding invoice %s: %w", number, err)
	}
	return &inv, nil
}

// Migrate implements Store.
func (*RedisStore) Migrate(context.Context) error {
	return nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
