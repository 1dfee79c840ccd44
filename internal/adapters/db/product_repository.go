// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// productRepository implements ports.ProductRepository
type productRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "product")),
	}
}

// Save creates a new product
func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, price, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	var description *string
	if product.Description != "" {
		description = &product.Description
	}

	err := r.db.QueryRow(ctx, query, product.Name, product.Price, description, now).Scan(
		&product.ID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	r.logger.DebugContext(ctx, "product saved",
		slog.Int64("product_id", product.ID),
		slog.String("name", product.Name))

	return nil
}

// Update updates an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products SET name = $2, price = $3, description = $4, updated_at = $5
		WHERE id = $1
		RETURNING created_at, updated_at`

	product.UpdatedAt = time.Now()
	var description *string
	if product.Description != "" {
		description = &product.Description
	}

	err := r.db.QueryRow(ctx, query,
		product.ID, product.Name, product.Price, description, product.UpdatedAt,
	).Scan(&product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("product %d: %w", product.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	r.logger.DebugContext(ctx, "product updated", slog.Int64("product_id", product.ID))

	return nil
}

// FindByID retrieves a product by ID. Returns nil without error when the
// product does not exist.
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, price, description, created_at, updated_at
		FROM products
		WHERE id = $1`

	product := &domain.Product{}
	var description sql.NullString

	err := r.db.QueryRow(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Price, &description,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	product.Description = description.String

	return product, nil
}

// FindAll retrieves products with filtering and pagination
func (r *productRepository) FindAll(ctx context.Context, params ports.ProductListParams) ([]*domain.Product, int64, error) {
	qb := squirrel.Select("id", "name", "price", "description", "created_at", "updated_at").
		From("products").
		PlaceholderFormat(squirrel.Dollar)

	if params.Search != "" {
		qb = qb.Where("name ILIKE ?", "%"+params.Search+"%")
	}
	if params.MinPrice != nil {
		qb = qb.Where(squirrel.GtOrEq{"price": *params.MinPrice})
	}
	if params.MaxPrice != nil {
		qb = qb.Where(squirrel.LtOrEq{"price": *params.MaxPrice})
	}

	// Count total rows (before pagination)
	countQb := qb.Column("COUNT(*) OVER()").Limit(1)
	countSQL, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	row := r.db.QueryRow(ctx, countSQL, countArgs...)
	var p domain.Product
	var desc sql.NullString
	err = row.Scan(&p.ID, &p.Name, &p.Price, &desc, &p.CreatedAt, &p.UpdatedAt, &totalCount)
	if err != nil && err != pgx.ErrNoRows {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	orderBy := "id ASC"
	if params.SortBy != "" {
		direction := "ASC"
		if params.SortOrder == "desc" {
			direction = "DESC"
		}
		switch params.SortBy {
		case "name":
			orderBy = fmt.Sprintf("name %s", direction)
		case "price":
			orderBy = fmt.Sprintf("price %s", direction)
		case "created", "created_at":
			orderBy = fmt.Sprintf("created_at %s", direction)
		default:
			orderBy = fmt.Sprintf("id %s", direction)
		}
	}
	qb = qb.OrderBy(orderBy)

	if params.PageSize > 0 {
		qb = qb.Limit(uint64(params.PageSize))
		if params.Page > 1 {
			qb = qb.Offset(uint64((params.Page - 1) * params.PageSize))
		}
	}

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		var description sql.NullString

		if err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &description,
			&product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}

		product.Description = description.String
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, totalCount, nil
}

// Delete removes a product; purchases and sales cascade at the schema level.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "product deleted", slog.Int64("product_id", id))

	return nil
}

// Exists checks if a product exists
func (r *productRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return exists, nil
}
