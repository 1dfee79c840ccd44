// internal/core/services/product.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// ProductService handles product catalog business logic
type ProductService struct {
	repo   ports.ProductRepository
	logger *slog.Logger
}

// Statically assert that *ProductService implements the ProductService interface.
var _ ports.ProductService = (*ProductService)(nil)

// NewProductService creates a new product service
func NewProductService(repo ports.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		logger: logger.With(slog.String("service", "product")),
	}
}

// Create validates and persists a new product
func (s *ProductService) Create(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", product.ID),
		slog.String("name", product.Name))

	return nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	return product, nil
}

// List retrieves a page of products
func (s *ProductService) List(ctx context.Context, params ports.ProductListParams) (*ports.ProductListResult, error) {
	// Normalize pagination
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	products, totalCount, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := int((totalCount + int64(params.PageSize) - 1) / int64(params.PageSize))

	return &ports.ProductListResult{
		Products:   products,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// Update validates and persists changes to an existing product
func (s *ProductService) Update(ctx context.Context, id int64, product *domain.Product) error {
	// Ensure the ID matches
	product.ID = id

	if err := product.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.Int64("product_id", id))

	return nil
}

// Delete removes a product and all of its ledger events
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.Int64("product_id", id))

	return nil
}
