package store

import (
	"context"
	"fmt"

	"github.com/donaldgifford/einvoice-tracker/internal/config"
)

// Driver identifiers accepted by New.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// New opens the store selected by cfg.Driver and runs its migrations.
func New(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case DriverPostgres:
		s, err = NewPostgresStore(ctx, cfg.Database.DSN())
	case DriverRedis:
		s, err = NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case DriverSQLite:
		s, err = NewSQLiteStore(cfg.SQLite.Path)
	case DriverMemory, "":
		s = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrating %s store: %w", cfg.Driver, err)
	}
	return s, nil
}
