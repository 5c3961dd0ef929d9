package store_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/config"
	"github.com/donaldgifford/einvoice-tracker/internal/store"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

var sqliteSeq atomic.Int64

func testInvoice(number string) *domain.Invoice {
	taipei := time.FixedZone("CST", 8*60*60)
	return &domain.Invoice{
		Number:      number,
		SellerName:  "全家便利商店",
		TotalAmount: 185,
		Datetime:    time.Date(2026, 9, 14, 12, 30, 5, 0, taipei),
		Description: "好吃好吃",
		Items: []domain.InvoiceItem{
			{Name: "鮮乳", Quantity: 1, UnitPrice: 65, TotalPrice: 65, Category: "Groceries"},
			{Name: "便當", Quantity: 2, UnitPrice: 60, TotalPrice: 120, Category: "Dining"},
		},
	}
}

// runStoreContract exercises the behavior every Store must share.
func runStoreContract(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	ok, err := s.Exists(ctx, "AB12345678")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "AB12345678")
	require.ErrorIs(t, err, store.ErrNotFound)

	inv := testInvoice("AB12345678")
	require.NoError(t, s.Commit(ctx, inv))

	ok, err = s.Exists(ctx, "AB12345678")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "AB12345678")
	require.NoError(t, err)
	assert.Equal(t, inv.Number, got.Number)
	assert.Equal(t, inv.SellerName, got.SellerName)
	assert.InDelta(t, inv.TotalAmount, got.TotalAmount, 0.001)
	assert.True(t, inv.Datetime.Equal(got.Datetime), "datetime %s != %s", inv.Datetime, got.Datetime)
	assert.Equal(t, inv.Description, got.Description)
	require.Len(t, got.Items, 2)
	assert.Equal(t, inv.Items[0].Name, got.Items[0].Name)
	assert.Equal(t, inv.Items[1], got.Items[1])

	dup := testInvoice("AB12345678")
	dup.Description = "second write"
	err = s.Commit(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyCommitted)

	got, err = s.Get(ctx, "AB12345678")
	require.NoError(t, err)
	assert.Equal(t, "好吃好吃", got.Description)

	bare := testInvoice("CD87654321")
	bare.Items = nil
	require.NoError(t, s.Commit(ctx, bare))
	got, err = s.Get(ctx, "CD87654321")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func newSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dsn := fmt.Sprintf("file:store-test-%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	s, err := store.NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newRedis(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := store.NewRedisStore(context.Background(), store.RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	s := store.NewMemoryStore()
	runStoreContract(t, s)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_CommitCopiesItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	inv := testInvoice("EF00000001")
	require.NoError(t, s.Commit(ctx, inv))
	inv.Items[0].Category = "mutated"

	got, err := s.Get(ctx, "EF00000001")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Items[0].Category)
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, newSQLite(t))
}

func TestSQLiteStore_MigrateIsRepeatable(t *testing.T) {
	t.Parallel()
	s := newSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	s, _ := newRedis(t)
	runStoreContract(t, s)
}

func TestRedisStore_KeysUsePrefixAndNeverExpire(t *testing.T) {
	t.Parallel()
	s, mr := newRedis(t)

	require.NoError(t, s.Commit(context.Background(), testInvoice("GH11112222")))

	assert.True(t, mr.Exists("einvoice:invoice:GH11112222"))
	assert.Zero(t, mr.TTL("einvoice:invoice:GH11112222"))
}

func TestRedisStore_Unreachable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := store.NewRedisStore(context.Background(), store.RedisOptions{Addr: addr})
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr string
	}{
		{name: "memory", cfg: config.StoreConfig{Driver: store.DriverMemory}},
		{
			name: "sqlite",
			cfg: config.StoreConfig{
				Driver: store.DriverSQLite,
				SQLite: config.SQLiteConfig{Path: "file:factory-test?mode=memory&cache=shared"},
			},
		},
		{
			name: "redis",
			cfg: config.StoreConfig{
				Driver: store.DriverRedis,
				Redis:  config.RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
			},
		},
		{name: "unknown", cfg: config.StoreConfig{Driver: "mongo"}, wantErr: "unsupported store driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := store.New(ctx, &tt.cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			require.NoError(t, s.Commit(ctx, testInvoice("IJ99990000")))
			ok, err := s.Exists(ctx, "IJ99990000")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}
