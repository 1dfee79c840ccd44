// internal/handlers/product.go
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

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	service     ports.ProductService
	cache       ports.CacheRepository
	invalidator *redis_a.Invalidator
	logger      *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service ports.ProductService, cache ports.CacheRepository, invalidator *redis_a.Invalidator, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:     service,
		cache:       cache,
		invalidator: invalidator,
		logger:      logger.With(slog.String("handler", "product")),
	}
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product := req.ToDomain()
	if err := h.service.Create(ctx, product); err != nil {
		if domain.IsValidation(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "failed to create product",
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	h.respondJSON(w, http.StatusCreated, product)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cacheKey := redis_a.BuildKey(redis_a.PrefixProduct, strconv.FormatInt(id, 10))
	var product domain.Product

	err := h.cache.GetOrSet(ctx, cacheKey, &product, func() (interface{}, error) {
		return h.service.GetByID(ctx, id)
	}, time.Minute)

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get product",
			slog.Int64("product_id", id),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.List(ctx, h.parseListParams(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list products",
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product := req.ToDomain()
	if err := h.service.Update(ctx, id, product); err != nil {
		switch {
		case domain.IsValidation(err):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "Product not found")
		default:
			h.logger.ErrorContext(ctx, "failed to update product",
				slog.Int64("product_id", id),
				slog.Any("error", err))
			h.respondError(w, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	h.invalidator.InvalidateProduct(ctx, strconv.FormatInt(id, 10))

	h.respondJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete product",
			slog.Int64("product_id", id),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	h.invalidator.InvalidateProduct(ctx, strconv.FormatInt(id, 10))

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product deleted successfully",
		"id":      id,
	})
}

func (h *ProductHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return 0, false
	}
	return id, true
}

// parseListParams parses query parameters for listing products
func (h *ProductHandler) parseListParams(r *http.Request) ports.ProductListParams {
	params := ports.ProductListParams{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				params.PageSize = 100
			} else {
				params.PageSize = l
			}
		}
	}

	params.Search = r.URL.Query().Get("search")

	if min := r.URL.Query().Get("min_price"); min != "" {
		if v, err := strconv.ParseInt(min, 10, 64); err == nil {
			params.MinPrice = &v
		}
	}
	if max := r.URL.Query().Get("max_price"); max != "" {
		if v, err := strconv.ParseInt(max, 10, 64); err == nil {
			params.MaxPrice = &v
		}
	}

	if sortBy := r.URL.Query().Get("sort"); sortBy != "" {
		params.SortBy = sortBy
	}
	if order := r.URL.Query().Get("order"); order == "asc" || order == "desc" {
		params.SortOrder = order
	}

	return params
}

// Helper methods

func (h *ProductHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.Any("error", err))
	}
}

func (h *ProductHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request/Response DTOs

// ProductRequest represents the request body for creating or updating a
// product.
type ProductRequest struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// ToDomain converts the request to a domain model
func (r *ProductRequest) ToDomain() *domain.Product {
	return &domain.Product{
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
	}
}
