package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// MemoryStore is a process-local Store. Everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]domain.Invoice
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[string]domain.Invoice)}
}

// Exists implements Store.
func (s *MemoryStore) Exists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.invoices[number]
	return ok, nil
}

// Commit implements Store.
func (s *MemoryStore) Commit(_ context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.Number]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyCommitted, inv.Number)
	}
	cp := *inv
	cp.Items = slices.Clone(inv.Items)
	s.invoices[inv.Number] = cp
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, number string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	inv.Items = slices.Clone(inv.Items)
	return &inv, nil
}

// Len returns the number of committed invoices.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices)
}

// Migrate implements Store.
func (*MemoryStore) Migrate(context.Context) error { return nil }

// Ping implements Store.
func (*MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (*MemoryStore) Close() error { return nil }
