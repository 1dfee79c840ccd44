// internal/handlers/ledger.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	redis_a "github.com/ammerola/stockledger-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// LedgerHandler handles purchase and sale event HTTP requests
type LedgerHandler struct {
	service     ports.LedgerService
	invalidator *redis_a.Invalidator
	logger      *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(service ports.LedgerService, invalidator *redis_a.Invalidator, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service:     service,
		invalidator: invalidator,
		logger:      logger.With(slog.String("handler", "ledger")),
	}
}

// RecordPurchase handles POST /api/v1/purchases
func (h *LedgerHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event := req.ToDomain()
	if err := h.service.RecordPurchase(ctx, event); err != nil {
		switch {
		case domain.IsValidation(err):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "Product not found")
		default:
			h.logger.ErrorContext(ctx, "failed to record purchase",
				slog.Int64("product_id", req.ProductID),
				slog.Any("error", err))
			h.respondError(w, http.StatusInternalServerError, "Failed to record purchase")
		}
		return
	}

	h.invalidator.InvalidateProduct(ctx, strconv.FormatInt(event.ProductID, 10))

	h.respondJSON(w, http.StatusCreated, event)
}

// RecordSale handles POST /api/v1/sales
func (h *LedgerHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event := req.ToDomain()
	if err := h.service.RecordSale(ctx, event); err != nil {
		switch {
		case domain.IsValidation(err):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, domain.ErrInsufficientStock):
			h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.ErrorContext(ctx, "failed to record sale",
				slog.Int64("product_id", req.ProductID),
				slog.Any("error", err))
			h.respondError(w, http.StatusInternalServerError, "Failed to record sale")
		}
		return
	}

	h.invalidator.InvalidateProduct(ctx, strconv.FormatInt(event.ProductID, 10))

	h.respondJSON(w, http.StatusCreated, event)
}

// Helper methods

func (h *LedgerHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.Any("error", err))
	}
}

func (h *LedgerHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request/Response DTOs

// PurchaseRequest represents the request body for recording a purchase
type PurchaseRequest struct {
	ProductID   int64      `json:"product_id"`
	Quantity    int64      `json:"quantity"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

// ToDomain converts the request to a domain model
func (r *PurchaseRequest) ToDomain() *domain.PurchaseEvent {
	event := &domain.PurchaseEvent{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
	}
	if r.PurchasedAt != nil {
		event.PurchasedAt = *r.PurchasedAt
	}
	return event
}

// SaleRequest represents the request body for recording a sale
type SaleRequest struct {
	ProductID int64      `json:"product_id"`
	Quantity  int64      `json:"quantity"`
	SoldAt    *time.Time `json:"sold_at,omitempty"`
}

// ToDomain converts the request to a domain model
func (r *SaleRequest) ToDomain() *domain.SaleEvent {
	event := &domain.SaleEvent{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
	}
	if r.SoldAt != nil {
		event.SoldAt = *r.SoldAt
	}
	return event
}
