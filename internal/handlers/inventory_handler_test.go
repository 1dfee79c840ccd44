// internal/handlers/inventory_handler_test.go
package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/ammerola/stockledger-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
	"github.com/ammerola/stockledger-be/internal/handlers"
	"github.com/ammerola/stockledger-be/test/helpers"
	"github.com/ammerola/stockledger-be/test/mocks"
)

func newInventoryHandler(t *testing.T) (*handlers.InventoryHandler, *mocks.MockLedgerService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := helpers.TestLogger()
	service := mocks.NewMockLedgerService(ctrl)
	cache := redis_a.NewCache(helpers.SetupTestRedis(t).Client, time.Minute, logger)

	return handlers.NewInventoryHandler(service, cache, logger), service
}

func TestInventoryHandler_GetFeed(t *testing.T) {
	movements := []domain.Movement{
		{SourceID: 1, Quantity: 10, UnitPrice: 2500, Type: domain.MovementPurchase, OccurredAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{SourceID: 1, Quantity: 2, UnitPrice: 2500, Type: domain.MovementSale, OccurredAt: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
	}

	tests := []struct {
		name           string
		productID      string
		setupMocks     func(*mocks.MockLedgerService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name:      "returns_movement_feed",
			productID: "1",
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					Feed(gomock.Any(), int64(1)).
					Return(movements, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response handlers.FeedResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, int64(1), response.ProductID)
				require.Len(t, response.Movements, 2)
				assert.Equal(t, domain.MovementPurchase, response.Movements[0].Type)
				assert.Equal(t, domain.MovementSale, response.Movements[1].Type)
			},
		},
		{
			name:      "empty_feed_for_product_without_events",
			productID: "2",
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					Feed(gomock.Any(), int64(2)).
					Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response handlers.FeedResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.NotNil(t, response.Movements)
				assert.Empty(t, response.Movements)
			},
		},
		{
			name:      "unknown_product_yields_empty_feed",
			productID: "99",
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					Feed(gomock.Any(), int64(99)).
					Return([]domain.Movement{}, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response handlers.FeedResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Empty(t, response.Movements)
			},
		},
		{
			name:           "invalid_id_format",
			productID:      "abc",
			setupMocks:     func(m *mocks.MockLedgerService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "service_error",
			productID: "1",
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					Feed(gomock.Any(), int64(1)).
					Return(nil, errors.New("database connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := newInventoryHandler(t)
			tt.setupMocks(service)

			req := httptest.NewRequest("GET", "/api/v1/inventory/"+tt.productID, nil)
			req.SetPathValue("id", tt.productID)
			w := httptest.NewRecorder()

			handler.GetFeed(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestInventoryHandler_GetFeed_ServesSecondReadFromCache(t *testing.T) {
	handler, service := newInventoryHandler(t)

	service.EXPECT().
		Feed(gomock.Any(), int64(1)).
		Return([]domain.Movement{{SourceID: 1, Quantity: 5, Type: domain.MovementPurchase}}, nil).
		Times(1)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/v1/inventory/1", nil)
		req.SetPathValue("id", "1")
		w := httptest.NewRecorder()

		handler.GetFeed(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestInventoryHandler_GetStockSummary(t *testing.T) {
	tests := []struct {
		name           string
		productID      string
		setupMocks     func(*mocks.MockLedgerService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name:      "returns_stock_summary",
			productID: "1",
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					StockSummary(gomock.Any(), int64(1)).
					Return(&ports.StockSummary{
						ProductID: 1,
						Purchased: 10,
						Sold:      3,
						OnHand:    7,
						Valuation: decimal.NewFromInt(17500),
					}, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response ports.StockSummary
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, int64(7), response.OnHand)
				assert.True(t, decimal.NewFromInt(17500).Equal(response.Valuation))
			},
		},
		{
			name:      "product_not_found",
			productID: "99",
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					StockSummary(gomock.Any(), int64(99)).
					Return(nil, fmt.Errorf("product %d: %w", 99, domain.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := newInventoryHandler(t)
			tt.setupMocks(service)

			req := httptest.NewRequest("GET", "/api/v1/inventory/"+tt.productID+"/summary", nil)
			req.SetPathValue("id", tt.productID)
			w := httptest.NewRecorder()

			handler.GetStockSummary(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}
