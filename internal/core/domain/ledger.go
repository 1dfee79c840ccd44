// internal/core/domain/ledger.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType distinguishes the two kinds of ledger entries.
type MovementType string

const (
	MovementPurchase MovementType = "purchase"
	MovementSale     MovementType = "sale"
)

// ImportStatus represents the lifecycle state of an uploaded sales file.
// Only the import pipeline may write this field.
type ImportStatus string

const (
	ImportStatusSync           ImportStatus = "sync"
	ImportStatusAsyncPending   ImportStatus = "async_pending"
	ImportStatusAsyncProcessed ImportStatus = "async_processed"
	ImportStatusAsyncFailed    ImportStatus = "async_failed"
)

// MaxProductNameLength bounds the product name column.
const MaxProductNameLength = 100

// Product is a sellable item tracked by the ledger. Deleting a product
// cascades to all of its purchase and sale events.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PurchaseEvent is one stock-in entry. Append-only.
type PurchaseEvent struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	Quantity    int64     `json:"quantity"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// SaleEvent is one stock-out entry. Append-only. ImportFileID is set only
// for sales materialized from an uploaded file.
type SaleEvent struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	Quantity     int64     `json:"quantity"`
	SoldAt       time.Time `json:"sold_at"`
	ImportFileID *int64    `json:"import_file_id,omitempty"`
}

// ImportFile is one uploaded sales batch. Content is staged under
// StorageKey; FileName is display metadata only.
type ImportFile struct {
	ID          int64        `json:"id"`
	FileName    string       `json:"file_name"`
	StorageKey  uuid.UUID    `json:"storage_key"`
	Status      ImportStatus `json:"status"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"last_error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

// Movement is one ledger entry normalized for the inventory feed.
type Movement struct {
	SourceID   int64        `json:"id"`
	Quantity   int64        `json:"quantity"`
	UnitPrice  int64        `json:"unit"`
	Type       MovementType `json:"type"`
	OccurredAt time.Time    `json:"date"`
}

// Value returns the movement's total value at the product's unit price.
func (m Movement) Value() decimal.Decimal {
	return decimal.NewFromInt(m.UnitPrice).Mul(decimal.NewFromInt(m.Quantity))
}

// SaleRow is one parsed row of an uploaded sales file.
type SaleRow struct {
	ProductID int64
	SoldAt    time.Time
	Quantity  int64
}

// Validate performs domain validation on the product.
func (p *Product) Validate() error {
	if p.Name == "" {
		return NewValidationError("name is required")
	}
	if len(p.Name) > MaxProductNameLength {
		return NewValidationError(fmt.Sprintf("name must be at most %d characters", MaxProductNameLength))
	}
	if p.Price < 0 {
		return NewValidationError("price cannot be negative")
	}
	return nil
}

// Validate checks the purchase event before it is appended to the ledger.
func (e *PurchaseEvent) Validate() error {
	if e.ProductID <= 0 {
		return NewValidationError("product_id is required")
	}
	if e.Quantity < 0 {
		return NewValidationError("quantity cannot be negative")
	}
	return nil
}

// Validate checks the sale event before it is appended to the ledger.
func (e *SaleEvent) Validate() error {
	if e.ProductID <= 0 {
		return NewValidationError("product_id is required")
	}
	if e.Quantity < 0 {
		return NewValidationError("quantity cannot be negative")
	}
	return nil
}

// PrepareForStorage fills event defaults before insert.
func (e *PurchaseEvent) PrepareForStorage() {
	if e.PurchasedAt.IsZero() {
		e.PurchasedAt = time.Now()
	}
}

// PrepareForStorage fills event defaults before insert.
func (e *SaleEvent) PrepareForStorage() {
	if e.SoldAt.IsZero() {
		e.SoldAt = time.Now()
	}
}

// Processable reports whether the worker may still pick up this file.
func (f *ImportFile) Processable() bool {
	return f.Status == ImportStatusAsyncPending
}
