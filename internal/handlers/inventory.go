// internal/handlers/inventory.go
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

// InventoryHandler serves the per-product movement feed and stock totals
type InventoryHandler struct {
	service ports.LedgerService
	cache   ports.CacheRepository
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service ports.LedgerService, cache ports.CacheRepository, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "inventory")),
	}
}

// FeedResponse is the movement feed for one product.
type FeedResponse struct {
	ProductID int64             `json:"product_id"`
	Movements []domain.Movement `json:"movements"`
}

// GetFeed handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cacheKey := redis_a.BuildKey(redis_a.PrefixFeed, strconv.FormatInt(productID, 10))
	var feed FeedResponse

	err := h.cache.GetOrSet(ctx, cacheKey, &feed, func() (interface{}, error) {
		movements, err := h.service.Feed(ctx, productID)
		if err != nil {
			return nil, err
		}
		if movements == nil {
			movements = []domain.Movement{}
		}
		return &FeedResponse{ProductID: productID, Movements: movements}, nil
	}, time.Minute)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load inventory feed",
			slog.Int64("product_id", productID),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to load inventory feed")
		return
	}

	h.respondJSON(w, http.StatusOK, feed)
}

// GetStockSummary handles GET /api/v1/inventory/{id}/summary
func (h *InventoryHandler) GetStockSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cacheKey := redis_a.BuildKey(redis_a.PrefixStock, strconv.FormatInt(productID, 10))
	var summary ports.StockSummary

	err := h.cache.GetOrSet(ctx, cacheKey, &summary, func() (interface{}, error) {
		return h.service.StockSummary(ctx, productID)
	}, time.Minute)

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to load stock summary",
			slog.Int64("product_id", productID),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to load stock summary")
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

func (h *InventoryHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return 0, false
	}
	return id, true
}

// Helper methods

func (h *InventoryHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.Any("error", err))
	}
}

func (h *InventoryHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
