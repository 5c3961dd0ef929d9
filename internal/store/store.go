// Package store defines the dedup gate for e-invoice tracker. The engine
// depends on the Store interface only; postgres, redis, sqlite and memory
// implementations are chosen at startup by New.
package store

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

var (
	// ErrAlreadyCommitted is returned by Commit when the invoice number is
	// already recorded. The stored record is left untouched.
	ErrAlreadyCommitted = errors.New("invoice already committed")

	// ErrNotFound is returned by Get for an unknown invoice number.
	ErrNotFound = errors.New("invoice not found")
)

// Store records every invoice the tracker has processed, keyed by invoice
// number. Records are written once and never updated or deleted.
type Store interface {
	// Exists reports whether number has been committed.
	Exists(ctx context.Context, number string) (bool, error)
	// Commit persists inv. It fails with ErrAlreadyCommitted when the
	// number is already present.
	Commit(ctx context.Context, inv *domain.Invoice) error
	// Get returns the committed invoice for number.
	Get(ctx context.Context, number string) (*domain.Invoice, error)

	// Migrate prepares the schema. It is a no-op for schemaless stores.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
