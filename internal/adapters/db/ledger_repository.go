// internal/adapters/db/ledger_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// ledgerRepository implements ports.LedgerRepository
type ledgerRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *Database, logger *slog.Logger) ports.LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "ledger")),
	}
}

// SavePurchase appends a stock-in event
func (r *ledgerRepository) SavePurchase(ctx context.Context, event *domain.PurchaseEvent) error {
	exists, err := r.db.Exists(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, event.ProductID)
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return fmt.Errorf("product %d: %w", event.ProductID, domain.ErrNotFound)
	}

	query := `
		INSERT INTO purchases (product_id, quantity, purchased_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err = r.db.QueryRow(ctx, query, event.ProductID, event.Quantity, event.PurchasedAt).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to save purchase: %w", err)
	}

	r.logger.DebugContext(ctx, "purchase recorded",
		slog.Int64("product_id", event.ProductID),
		slog.Int64("quantity", event.Quantity))

	return nil
}

// SaveSale appends a stock-out event. The product row is locked for the
// duration of the transaction so the totals read and the insert cannot
// interleave with a concurrent sale of the same product.
func (r *ledgerRepository) SaveSale(ctx context.Context, event *domain.SaleEvent) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var lockedID int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM products WHERE id = $1 FOR UPDATE`,
			event.ProductID,
		).Scan(&lockedID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return fmt.Errorf("product %d: %w", event.ProductID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to lock product: %w", err)
		}

		var purchased, sold int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM purchases WHERE product_id = $1`,
			event.ProductID,
		).Scan(&purchased)
		if err != nil {
			return fmt.Errorf("failed to sum purchases: %w", err)
		}

		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM sales WHERE product_id = $1`,
			event.ProductID,
		).Scan(&sold)
		if err != nil {
			return fmt.Errorf("failed to sum sales: %w", err)
		}

		if sold+event.Quantity > purchased {
			return &domain.InsufficientStockError{
				ProductID: event.ProductID,
				Purchased: purchased,
				Sold:      sold,
				Requested: event.Quantity,
			}
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO sales (product_id, quantity, sold_at, import_file_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			event.ProductID, event.Quantity, event.SoldAt, event.ImportFileID,
		).Scan(&event.ID)
		if err != nil {
			return fmt.Errorf("failed to save sale: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "sale recorded",
		slog.Int64("product_id", event.ProductID),
		slog.Int64("quantity", event.Quantity))

	return nil
}

// StockTotals returns cumulative purchased and sold quantities
func (r *ledgerRepository) StockTotals(ctx context.Context, productID int64) (int64, int64, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(quantity) FROM purchases WHERE product_id = $1), 0),
			COALESCE((SELECT SUM(quantity) FROM sales WHERE product_id = $1), 0)`

	var purchased, sold int64
	if err := r.db.QueryRow(ctx, query, productID).Scan(&purchased, &sold); err != nil {
		return 0, 0, fmt.Errorf("failed to read stock totals: %w", err)
	}

	return purchased, sold, nil
}

// Feed returns the time-ordered movement sequence for a product. The two
// ledgers are merged with a type rank so purchases sort before sales when
// timestamps collide.
func (r *ledgerRepository) Feed(ctx context.Context, productID int64) ([]domain.Movement, error) {
	query := `
		SELECT e.id, e.quantity, p.price, e.kind, e.occurred_at
		FROM (
			SELECT id, product_id, quantity, purchased_at AS occurred_at,
			       'purchase' AS kind, 0 AS kind_rank
			FROM purchases
			WHERE product_id = $1
			UNION ALL
			SELECT id, product_id, quantity, sold_at AS occurred_at,
			       'sale' AS kind, 1 AS kind_rank
			FROM sales
			WHERE product_id = $1
		) e
		JOIN products p ON p.id = e.product_id
		ORDER BY e.occurred_at, e.kind_rank, e.id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		var m domain.Movement
		var kind string

		if err := rows.Scan(&m.SourceID, &m.Quantity, &m.UnitPrice, &kind, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}

		m.Type = domain.MovementType(kind)
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return movements, nil
}
