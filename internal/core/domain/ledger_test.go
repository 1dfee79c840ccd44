package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger-be/internal/core/domain"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name      string
		product   *domain.Product
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid_product",
			product: &domain.Product{
				Name:        "Widget",
				Price:       1200,
				Description: "standard widget",
			},
			wantError: false,
		},
		{
			name:      "missing_name",
			product:   &domain.Product{Price: 100},
			wantError: true,
			errorMsg:  "name is required",
		},
		{
			name: "name_too_long",
			product: &domain.Product{
				Name:  strings.Repeat("x", domain.MaxProductNameLength+1),
				Price: 100,
			},
			wantError: true,
			errorMsg:  "at most 100 characters",
		},
		{
			name: "name_at_limit",
			product: &domain.Product{
				Name:  strings.Repeat("x", domain.MaxProductNameLength),
				Price: 100,
			},
			wantError: false,
		},
		{
			name:      "negative_price",
			product:   &domain.Product{Name: "Widget", Price: -1},
			wantError: true,
			errorMsg:  "price cannot be negative",
		},
		{
			name:      "zero_price_is_allowed",
			product:   &domain.Product{Name: "Freebie", Price: 0},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()

			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.True(t, domain.IsValidation(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEvents_Validate(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError bool
	}{
		{"valid_purchase", (&domain.PurchaseEvent{ProductID: 1, Quantity: 5}).Validate(), false},
		{"purchase_missing_product", (&domain.PurchaseEvent{Quantity: 5}).Validate(), true},
		{"purchase_negative_quantity", (&domain.PurchaseEvent{ProductID: 1, Quantity: -1}).Validate(), true},
		{"purchase_zero_quantity", (&domain.PurchaseEvent{ProductID: 1, Quantity: 0}).Validate(), false},
		{"valid_sale", (&domain.SaleEvent{ProductID: 1, Quantity: 5}).Validate(), false},
		{"sale_missing_product", (&domain.SaleEvent{Quantity: 5}).Validate(), true},
		{"sale_negative_quantity", (&domain.SaleEvent{ProductID: 1, Quantity: -3}).Validate(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantError {
				require.Error(t, tt.err)
				assert.True(t, domain.IsValidation(tt.err))
			} else {
				require.NoError(t, tt.err)
			}
		})
	}
}

func TestEvents_PrepareForStorage(t *testing.T) {
	t.Run("defaults_purchase_timestamp", func(t *testing.T) {
		e := &domain.PurchaseEvent{ProductID: 1, Quantity: 2}
		e.PrepareForStorage()
		assert.False(t, e.PurchasedAt.IsZero())
	})

	t.Run("keeps_explicit_sale_timestamp", func(t *testing.T) {
		soldAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		e := &domain.SaleEvent{ProductID: 1, Quantity: 2, SoldAt: soldAt}
		e.PrepareForStorage()
		assert.Equal(t, soldAt, e.SoldAt)
	})
}

func TestMovement_Value(t *testing.T) {
	m := domain.Movement{Quantity: 3, UnitPrice: 250, Type: domain.MovementSale}
	assert.True(t, m.Value().Equal(decimal.NewFromInt(750)))
}

func TestImportFile_Processable(t *testing.T) {
	tests := []struct {
		status domain.ImportStatus
		want   bool
	}{
		{domain.ImportStatusAsyncPending, true},
		{domain.ImportStatusAsyncProcessed, false},
		{domain.ImportStatusAsyncFailed, false},
		{domain.ImportStatusSync, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := &domain.ImportFile{Status: tt.status}
			assert.Equal(t, tt.want, f.Processable())
		})
	}
}
