// internal/core/ports/services.go
package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/stockledger-be/internal/core/domain"
)

// ProductService defines the application service port for the product
// catalog.
type ProductService interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, params ProductListParams) (*ProductListResult, error)
	Update(ctx context.Context, id int64, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

// LedgerService defines the application service port for recording
// purchases and sales and reading the inventory feed.
type LedgerService interface {
	RecordPurchase(ctx context.Context, event *domain.PurchaseEvent) error
	RecordSale(ctx context.Context, event *domain.SaleEvent) error
	Feed(ctx context.Context, productID int64) ([]domain.Movement, error)
	StockSummary(ctx context.Context, productID int64) (*StockSummary, error)
}

// ImportService defines the application service port for the sales file
// import pipeline.
type ImportService interface {
	// ImportSync stages the upload, parses it and materializes its rows as
	// sales in one transaction. Returns the number of sales created.
	ImportSync(ctx context.Context, data []byte, fileName string) (int, error)
	// Enqueue stages the upload and records it async_pending for the
	// worker; returns the created record immediately.
	Enqueue(ctx context.Context, data []byte, fileName string) (*domain.ImportFile, error)
	// Drain processes pending files oldest-first until none remain or a
	// file fails; one drain pass, not a daemon.
	Drain(ctx context.Context) (DrainStats, error)
	GetFile(ctx context.Context, id int64) (*domain.ImportFile, error)
}

// FileStage is a byte store for uploaded content, keyed by a generated
// identifier so colliding upload names cannot overwrite each other.
type FileStage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// SalesFileParser turns staged bytes into sale rows. Malformed content or
// missing columns surface as a validation error.
type SalesFileParser interface {
	Parse(fileName string, data []byte) ([]domain.SaleRow, error)
}

// ProductListResult holds one page of a product listing.
type ProductListResult struct {
	Products   []*domain.Product `json:"products"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// StockSummary reports a product's cumulative totals and on-hand value.
type StockSummary struct {
	ProductID int64           `json:"product_id"`
	Purchased int64           `json:"purchased"`
	Sold      int64           `json:"sold"`
	OnHand    int64           `json:"on_hand"`
	Valuation decimal.Decimal `json:"valuation"`
}

// DrainStats summarizes one worker drain pass.
type DrainStats struct {
	Processed  int           `json:"processed"`
	SalesAdded int           `json:"sales_added"`
	Elapsed    time.Duration `json:"elapsed"`
}
