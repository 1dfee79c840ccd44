// internal/core/services/ledger_service_test.go
package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/services"
	"github.com/ammerola/stockledger-be/test/helpers"
	"github.com/ammerola/stockledger-be/test/mocks"
)

func TestLedgerService_RecordPurchase(t *testing.T) {
	tests := []struct {
		name          string
		event         *domain.PurchaseEvent
		setupMocks    func(*mocks.MockLedgerRepository)
		expectedError bool
		errorContains string
	}{
		{
			name:  "successful_purchase",
			event: helpers.CreateTestPurchase(),
			setupMocks: func(m *mocks.MockLedgerRepository) {
				m.EXPECT().
					SavePurchase(gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "accepts_zero_quantity",
			event: helpers.CreateTestPurchase(func(e *domain.PurchaseEvent) {
				e.Quantity = 0
			}),
			setupMocks: func(m *mocks.MockLedgerRepository) {
				m.EXPECT().
					SavePurchase(gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "validation_fails_for_negative_quantity",
			event: helpers.CreateTestPurchase(func(e *domain.PurchaseEvent) {
				e.Quantity = -1
			}),
			setupMocks:    func(m *mocks.MockLedgerRepository) {},
			expectedError: true,
			errorContains: "quantity cannot be negative",
		},
		{
			name: "validation_fails_for_missing_product",
			event: helpers.CreateTestPurchase(func(e *domain.PurchaseEvent) {
				e.ProductID = 0
			}),
			setupMocks:    func(m *mocks.MockLedgerRepository) {},
			expectedError: true,
			errorContains: "product_id is required",
		},
		{
			name:  "propagates_unknown_product",
			event: helpers.CreateTestPurchase(),
			setupMocks: func(m *mocks.MockLedgerRepository) {
				m.EXPECT().
					SavePurchase(gomock.Any(), gomock.Any()).
					Return(domain.ErrNotFound)
			},
			expectedError: true,
			errorContains: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ledger := mocks.NewMockLedgerRepository(ctrl)
			products := mocks.NewMockProductRepository(ctrl)
			tt.setupMocks(ledger)

			service := services.NewLedgerService(ledger, products, helpers.TestLogger())
			err := service.RecordPurchase(context.Background(), tt.event)

			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLedgerService_RecordPurchase_DefaultsTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerRepository(ctrl)
	products := mocks.NewMockProductRepository(ctrl)

	ledger.EXPECT().
		SavePurchase(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, e *domain.PurchaseEvent) error {
			assert.False(t, e.PurchasedAt.IsZero())
			return nil
		})

	service := services.NewLedgerService(ledger, products, helpers.TestLogger())
	event := helpers.CreateTestPurchase(func(e *domain.PurchaseEvent) {
		e.PurchasedAt = time.Time{}
	})

	require.NoError(t, service.RecordPurchase(context.Background(), event))
}

func TestLedgerService_RecordSale(t *testing.T) {
	tests := []struct {
		name          string
		event         *domain.SaleEvent
		setupMocks    func(*mocks.MockLedgerRepository)
		expectedError error
	}{
		{
			name:  "successful_sale",
			event: helpers.CreateTestSale(),
			setupMocks: func(m *mocks.MockLedgerRepository) {
				m.EXPECT().
					SaveSale(gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name:  "rejects_overdraw",
			event: helpers.CreateTestSale(),
			setupMocks: func(m *mocks.MockLedgerRepository) {
				m.EXPECT().
					SaveSale(gomock.Any(), gomock.Any()).
					Return(&domain.InsufficientStockError{
						ProductID: 1, Purchased: 10, Sold: 9, Requested: 2,
					})
			},
			expectedError: domain.ErrInsufficientStock,
		},
		{
			name:  "rejects_unknown_product",
			event: helpers.CreateTestSale(),
			setupMocks: func(m *mocks.MockLedgerRepository) {
				m.EXPECT().
					SaveSale(gomock.Any(), gomock.Any()).
					Return(domain.ErrNotFound)
			},
			expectedError: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ledger := mocks.NewMockLedgerRepository(ctrl)
			products := mocks.NewMockProductRepository(ctrl)
			tt.setupMocks(ledger)

			service := services.NewLedgerService(ledger, products, helpers.TestLogger())
			err := service.RecordSale(context.Background(), tt.event)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLedgerService_Feed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerRepository(ctrl)
	products := mocks.NewMockProductRepository(ctrl)
	service := services.NewLedgerService(ledger, products, helpers.TestLogger())

	t.Run("returns_movements_in_repository_order", func(t *testing.T) {
		movements := []domain.Movement{
			{SourceID: 1, Quantity: 10, UnitPrice: 2500, Type: domain.MovementPurchase},
			{SourceID: 1, Quantity: 2, UnitPrice: 2500, Type: domain.MovementSale},
		}

		ledger.EXPECT().Feed(gomock.Any(), int64(1)).Return(movements, nil)

		result, err := service.Feed(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, movements, result)
	})

	t.Run("unknown_product_yields_empty_feed_not_error", func(t *testing.T) {
		ledger.EXPECT().Feed(gomock.Any(), int64(99)).Return(nil, nil)

		result, err := service.Feed(context.Background(), 99)
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("returns_empty_feed_for_product_without_events", func(t *testing.T) {
		ledger.EXPECT().Feed(gomock.Any(), int64(2)).Return([]domain.Movement{}, nil)

		result, err := service.Feed(context.Background(), 2)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestLedgerService_StockSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerRepository(ctrl)
	products := mocks.NewMockProductRepository(ctrl)
	service := services.NewLedgerService(ledger, products, helpers.TestLogger())

	t.Run("computes_on_hand_and_valuation", func(t *testing.T) {
		product := helpers.CreateTestProduct(func(p *domain.Product) {
			p.ID = 1
			p.Price = 2500
		})

		products.EXPECT().FindByID(gomock.Any(), int64(1)).Return(product, nil)
		ledger.EXPECT().StockTotals(gomock.Any(), int64(1)).Return(int64(10), int64(3), nil)

		summary, err := service.StockSummary(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(10), summary.Purchased)
		assert.Equal(t, int64(3), summary.Sold)
		assert.Equal(t, int64(7), summary.OnHand)
		assert.True(t, decimal.NewFromInt(17500).Equal(summary.Valuation))
	})

	t.Run("returns_not_found_for_unknown_product", func(t *testing.T) {
		products.EXPECT().FindByID(gomock.Any(), int64(99)).Return(nil, nil)

		_, err := service.StockSummary(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("propagates_totals_error", func(t *testing.T) {
		products.EXPECT().FindByID(gomock.Any(), int64(1)).Return(helpers.CreateTestProduct(), nil)
		ledger.EXPECT().StockTotals(gomock.Any(), int64(1)).Return(int64(0), int64(0), errors.New("timeout"))

		_, err := service.StockSummary(context.Background(), 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})
}
