// internal/handlers/ledger_handler_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/ammerola/stockledger-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/handlers"
	"github.com/ammerola/stockledger-be/test/helpers"
	"github.com/ammerola/stockledger-be/test/mocks"
)

func newLedgerHandler(t *testing.T) (*handlers.LedgerHandler, *mocks.MockLedgerService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := helpers.TestLogger()
	service := mocks.NewMockLedgerService(ctrl)
	cache := redis_a.NewCache(helpers.SetupTestRedis(t).Client, time.Minute, logger)
	invalidator := redis_a.NewInvalidator(cache, logger)

	return handlers.NewLedgerHandler(service, invalidator, logger), service
}

func TestLedgerHandler_RecordPurchase(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockLedgerService)
		expectedStatus int
	}{
		{
			name: "successfully_records_purchase",
			body: `{"product_id":1,"quantity":10}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordPurchase(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed_body",
			body:           `{"product_id":`,
			setupMocks:     func(m *mocks.MockLedgerService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation_error",
			body: `{"product_id":1,"quantity":-3}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordPurchase(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("validation failed: %w", domain.NewValidationError("quantity cannot be negative")))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown_product",
			body: `{"product_id":99,"quantity":10}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordPurchase(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("product %d: %w", 99, domain.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "service_error",
			body: `{"product_id":1,"quantity":10}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordPurchase(gomock.Any(), gomock.Any()).
					Return(errors.New("database connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := newLedgerHandler(t)
			tt.setupMocks(service)

			req := httptest.NewRequest("POST", "/api/v1/purchases", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.RecordPurchase(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestLedgerHandler_RecordSale(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockLedgerService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "successfully_records_sale",
			body: `{"product_id":1,"quantity":2}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordSale(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "insufficient_stock",
			body: `{"product_id":1,"quantity":50}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordSale(gomock.Any(), gomock.Any()).
					Return(&domain.InsufficientStockError{
						ProductID: 1, Purchased: 10, Sold: 2, Requested: 50,
					})
			},
			expectedStatus: http.StatusUnprocessableEntity,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Contains(t, response["error"], "insufficient stock")
			},
		},
		{
			name: "unknown_product",
			body: `{"product_id":99,"quantity":1}`,
			setupMocks: func(m *mocks.MockLedgerService) {
				m.EXPECT().
					RecordSale(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("product %d: %w", 99, domain.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "malformed_body",
			body:           `not json`,
			setupMocks:     func(m *mocks.MockLedgerService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := newLedgerHandler(t)
			tt.setupMocks(service)

			req := httptest.NewRequest("POST", "/api/v1/sales", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.RecordSale(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}
