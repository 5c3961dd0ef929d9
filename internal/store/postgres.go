package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// PostgresStore implements Store using pgxpool. Invoice headers and items
// live in separate tables and are written in one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connString and verifies the connection.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// Exists implements Store.
func (s *PostgresStore) Exists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)",
		number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking invoice %s: %w", number, err)
	}
	return exists, nil
}

// Commit implements Store.
func (s *PostgresStore) Commit(ctx context.Context, inv *domain.Invoice) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting commit of %s: %w", inv.Number, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO invoices (invoice_number, seller_name, total_amount, invoice_datetime, description)
		VALUES (@invoice_number, @seller_name, @total_amount, @invoice_datetime, @description)
		ON CONFLICT (invoice_number) DO NOTHING`,
		pgx.NamedArgs{
			"invoice_number":   inv.Number,
			"seller_name":      inv.SellerName,
			"total_amount":     inv.TotalAmount,
			"invoice_datetime": inv.Datetime,
			"description":      inv.Description,
		},
	)
	if err != nil {
		return fmt.Errorf("inserting invoice %s: %w", inv.Number, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyCommitted, inv.Number)
	}

	if len(inv.Items) > 0 {
		rows := make([][]any, len(inv.Items))
		for i, it := range inv.Items {
			rows[i] = []any{inv.Number, i, it.Name, it.Quantity, it.UnitPrice, it.TotalPrice, it.Category}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"invoice_items"},
			[]string{"invoice_number", "position", "item_name", "quantity", "unit_price", "total_price", "category"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("inserting items of %s: %w", inv.Number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing invoice %s: %w", inv.Number, err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, number string) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	err := s.pool.QueryRow(ctx, `
		SELECT invoice_number, seller_name, total_amount::float8, invoice_datetime, description
		FROM invoices WHERE invoice_number = $1`,
		number,
	).Scan(&inv.Number, &inv.SellerName, &inv.TotalAmount, &inv.Datetime, &inv.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("getting invoice %s: %w", number, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT item_name, quantity, unit_price::float8, total_price::float8, category
		FROM invoice_items WHERE invoice_number = $1 ORDER BY position`,
		number,
	)
	if err != nil {
		return nil, fmt.Errorf("getting items of %s: %w", number, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InvoiceItem, error) {
		var it domain.InvoiceItem
		err := row.Scan(&it.Name, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Category)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items of %s: %w", number, err)
	}
	inv.Items = items

	return inv, nil
}
