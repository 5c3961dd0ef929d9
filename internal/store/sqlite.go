package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

type invoiceRecord struct {
	Number      string `gorm:"column:invoice_number;primaryKey"`
	SellerName  string
	TotalAmount float64
	Datetime    time.Time `gorm:"column:invoice_datetime;index"`
	Description string
	CommittedAt time.Time    `gorm:"autoCreateTime"`
	Items       []itemRecord `gorm:"foreignKey:InvoiceNumber;references:Number"`
}

func (invoiceRecord) TableName() string { return "invoices" }

type itemRecord struct {
	InvoiceNumber string `gorm:"primaryKey"`
	Position      int    `gorm:"primaryKey;autoIncrement:false"`
	ItemName      string
	Quantity      int
	UnitPrice     float64
	TotalPrice    float64
	Category      string
}

func (itemRecord) TableName() string { return "invoice_items" }

// SQLiteStore implements Store on a gorm-managed SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the database file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return NewSQLiteStoreFromDB(db)
}

// NewSQLiteStoreFromDB wraps an existing gorm handle.
func NewSQLiteStoreFromDB(db *gorm.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("sqlite store requires database handle")
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate creates or updates the invoice tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&invoiceRecord{}, &itemRecord{}); err != nil {
		return fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return nil
}

// Exists implements Store.
func (s *SQLiteStore) Exists(ctx context.Context, number string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&invoiceRecord{}).
		Where("invoice_number = ?", number).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking invoice %s: %w", number, err)
	}
	return n > 0, nil
}

// Commit implements Store.
func (s *SQLiteStore) Commit(ctx context.Context, inv *domain.Invoice) error {
	rec := &invoiceRecord{
		Number:      inv.Number,
		SellerName:  inv.SellerName,
		TotalAmount: inv.TotalAmount,
		Datetime:    inv.Datetime,
		Description: inv.Description,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(rec)
		if res.Error != nil {
			return fmt.Errorf("inserting invoice %s: %w", inv.Number, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyCommitted, inv.Number)
		}

		if len(inv.Items) == 0 {
			return nil
		}
		items := make([]itemRecord, len(inv.Items))
		for i, it := range inv.Items {
			items[i] = itemRecord{
				InvoiceNumber: inv.Number,
				Position:      i,
				ItemName:      it.Name,
				Quantity:      it.Quantity,
				UnitPrice:     it.UnitPrice,
				TotalPrice:    it.TotalPrice,
				Category:      it.Category,
			}
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("inserting items of %s: %w", inv.Number, err)
		}
		return nil
	})
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, number string) (*domain.Invoice, error) {
	var rec invoiceRecord
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("invoice_number = ?", number).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("getting invoice %s: %w", number, err)
	}

	inv := &domain.Invoice{
		Number:      rec.Number,
		SellerName:  rec.SellerName,
		TotalAmount: rec.TotalAmount,
		Datetime:    rec.Datetime,
		Description: rec.Description,
		Items:       make([]domain.InvoiceItem, len(rec.Items)),
	}
	for i, it := range rec.Items {
		inv.Items[i] = domain.InvoiceItem{
			Name:       it.ItemName,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
			Category:   it.Category,
		}
	}
	return inv, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
