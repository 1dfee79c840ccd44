// internal/core/services/ledger.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// LedgerService records purchase and sale events and serves the derived
// inventory feed. Stock validation lives in the repository, under the
// same row lock as the insert; this layer owns input validation and
// derived reads.
type LedgerService struct {
	ledger   ports.LedgerRepository
	products ports.ProductRepository
	logger   *slog.Logger
}

// Statically assert that *LedgerService implements the LedgerService interface.
var _ ports.LedgerService = (*LedgerService)(nil)

// NewLedgerService creates a new ledger service
func NewLedgerService(ledger ports.LedgerRepository, products ports.ProductRepository, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		ledger:   ledger,
		products: products,
		logger:   logger.With(slog.String("service", "ledger")),
	}
}

// RecordPurchase validates and appends a stock-in event
func (s *LedgerService) RecordPurchase(ctx context.Context, event *domain.PurchaseEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	event.PrepareForStorage()

	if err := s.ledger.SavePurchase(ctx, event); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "purchase recorded",
		slog.Int64("purchase_id", event.ID),
		slog.Int64("product_id", event.ProductID),
		slog.Int64("quantity", event.Quantity))

	return nil
}

// RecordSale validates and appends a stock-out event. The repository
// rejects the event with domain.ErrInsufficientStock when cumulative
// sales would exceed cumulative purchases.
func (s *LedgerService) RecordSale(ctx context.Context, event *domain.SaleEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	event.PrepareForStorage()

	if err := s.ledger.SaveSale(ctx, event); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "sale recorded",
		slog.Int64("sale_id", event.ID),
		slog.Int64("product_id", event.ProductID),
		slog.Int64("quantity", event.Quantity))

	return nil
}

// Feed returns the product's chronological movement sequence. An
// unknown product or one with no events yields an empty sequence, not
// an error.
func (s *LedgerService) Feed(ctx context.Context, productID int64) ([]domain.Movement, error) {
	movements, err := s.ledger.Feed(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	if movements == nil {
		movements = []domain.Movement{}
	}

	return movements, nil
}

// StockSummary reports cumulative totals and the on-hand valuation at
// the product's current unit price.
func (s *LedgerService) StockSummary(ctx context.Context, productID int64) (*ports.StockSummary, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}

	purchased, sold, err := s.ledger.StockTotals(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock totals: %w", err)
	}

	onHand := purchased - sold

	return &ports.StockSummary{
		ProductID: productID,
		Purchased: purchased,
		Sold:      sold,
		OnHand:    onHand,
		Valuation: decimal.NewFromInt(product.Price).Mul(decimal.NewFromInt(onHand)),
	}, nil
}
