package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger-be/internal/adapters/db"
	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
	"github.com/ammerola/stockledger-be/test/helpers"
)

func TestProductRepository_SaveAndFind(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewProductRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	product := &domain.Product{
		Name:        "Anchor Bolt M16",
		Price:       450,
		Description: "Galvanized",
	}

	require.NoError(t, repo.Save(ctx, product))
	assert.NotZero(t, product.ID)
	assert.False(t, product.CreatedAt.IsZero())

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Anchor Bolt M16", found.Name)
	assert.Equal(t, int64(450), found.Price)
	assert.Equal(t, "Galvanized", found.Description)

	exists, err := repo.Exists(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, 99999)
	require.NoError(t, err)
	assert.False(t, exists)

	missing, err := repo.FindByID(ctx, 99999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepository_FindAll_Filtering(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewProductRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	helpers.SeedTestProducts(t, testDB.PgxPool, []*domain.Product{
		{Name: "Hex Bolt M8", Price: 250},
		{Name: "Hex Bolt M10", Price: 350},
		{Name: "Flat Washer M8", Price: 50},
	})

	products, total, err := repo.FindAll(ctx, ports.ProductListParams{
		Search:   "bolt",
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, products, 2)

	minPrice := int64(100)
	products, total, err = repo.FindAll(ctx, ports.ProductListParams{
		MinPrice:  &minPrice,
		SortBy:    "price",
		SortOrder: "desc",
		Page:      1,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, products, 2)
	assert.Equal(t, int64(350), products[0].Price)
}

func TestProductRepository_Delete_CascadesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewProductRepository(testDB.Database, helpers.TestLogger())
	ledger := db.NewLedgerRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	product := helpers.CreateTestProduct()
	product.ID = 0
	require.NoError(t, repo.Save(ctx, product))

	require.NoError(t, ledger.SavePurchase(ctx, &domain.PurchaseEvent{
		ProductID:   product.ID,
		Quantity:    5,
		PurchasedAt: time.Now(),
	}))
	require.NoError(t, ledger.SaveSale(ctx, &domain.SaleEvent{
		ProductID: product.ID,
		Quantity:  2,
		SoldAt:    time.Now(),
	}))

	require.NoError(t, repo.Delete(ctx, product.ID))

	// The product owns its events; deleting it removes them too.
	var count int64
	err := testDB.PgxPool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM purchases WHERE product_id = $1)
		      + (SELECT COUNT(*) FROM sales WHERE product_id = $1)`,
		product.ID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = repo.Delete(ctx, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
