// internal/core/ports/repositories.go
package ports

import (
	"context"

	"github.com/ammerola/stockledger-be/internal/core/domain"
)

// ProductRepository defines the persistence port for products.
// This interface is implemented by the database adapter.
type ProductRepository interface {
	Save(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context, params ProductListParams) ([]*domain.Product, int64, error)
	// Delete removes the product and, by cascade, all of its purchase and
	// sale events.
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// LedgerRepository defines the persistence port for purchase and sale
// events and the derived inventory feed.
type LedgerRepository interface {
	// SavePurchase appends a stock-in event.
	SavePurchase(ctx context.Context, event *domain.PurchaseEvent) error
	// SaveSale appends a stock-out event. The read of the existing totals
	// and the insert run in one transaction under a row lock on the
	// product, so concurrent sales against the same product serialize.
	// Returns domain.ErrInsufficientStock (wrapped) when the sale would
	// overdraw stock, domain.ErrNotFound when the product is absent.
	SaveSale(ctx context.Context, event *domain.SaleEvent) error
	// StockTotals returns cumulative purchased and sold quantities for the
	// product. Zero totals for an unknown product.
	StockTotals(ctx context.Context, productID int64) (purchased, sold int64, err error)
	// Feed returns the time-ordered movement sequence for the product,
	// purchases before sales on equal timestamps. Empty for an unknown
	// product or one without events.
	Feed(ctx context.Context, productID int64) ([]domain.Movement, error)
}

// ImportFileRepository defines the persistence port for uploaded sales
// batches. All status writes go through this interface; no other
// component touches the status column.
type ImportFileRepository interface {
	// CreateSync inserts the import file record with status sync and bulk
	// inserts one sale per row, all in one transaction. Returns the number
	// of sales created.
	CreateSync(ctx context.Context, file *domain.ImportFile, rows []domain.SaleRow) (int, error)
	// CreatePending inserts the import file record with status
	// async_pending for a later drain pass.
	CreatePending(ctx context.Context, file *domain.ImportFile) error
	FindByID(ctx context.Context, id int64) (*domain.ImportFile, error)
	// ProcessNext claims the oldest async_pending file under an exclusive
	// row lock, calls expand to obtain its rows, bulk inserts the sales
	// and marks the file async_processed, all in one transaction. Returns
	// (nil, 0, nil) when nothing is pending, otherwise the file and the
	// number of sales created. An expand or insert failure rolls the
	// transaction back and is returned together with the claimed file so
	// the caller can record the failure.
	ProcessNext(ctx context.Context, expand func(context.Context, *domain.ImportFile) ([]domain.SaleRow, error)) (*domain.ImportFile, int, error)
	// RecordFailure increments the attempt counter and stores the error;
	// once attempts reach maxAttempts the file is marked async_failed and
	// no longer claimed.
	RecordFailure(ctx context.Context, id int64, procErr string, maxAttempts int) error
}

// ProductListParams holds filtering and pagination for product listings.
type ProductListParams struct {
	Search    string
	MinPrice  *int64
	MaxPrice  *int64
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}
