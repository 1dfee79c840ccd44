package db_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger-be/internal/adapters/db"
	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/test/helpers"
)

func TestImportFileRepository_CreateSync(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewImportFileRepository(testDB.Database, helpers.TestLogger())
	ledger := db.NewLedgerRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	ids := helpers.SeedTestProducts(t, testDB.PgxPool, []*domain.Product{
		helpers.CreateTestProduct(),
	})
	productID := ids[0]

	file := &domain.ImportFile{FileName: "sales.csv", StorageKey: uuid.New()}
	rows := []domain.SaleRow{
		{ProductID: productID, Quantity: 3, SoldAt: time.Now()},
		{ProductID: productID, Quantity: 4, SoldAt: time.Now()},
		{ProductID: productID, Quantity: 2, SoldAt: time.Now()},
	}

	created, err := repo.CreateSync(ctx, file, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, domain.ImportStatusSync, file.Status)
	assert.NotZero(t, file.ID)
	assert.NotNil(t, file.ProcessedAt)

	// Imported rows land on the sale ledger without a stock check.
	_, sold, err := ledger.StockTotals(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), sold)
}

func TestImportFileRepository_CreateSync_RollsBackOnBadRow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewImportFileRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	ids := helpers.SeedTestProducts(t, testDB.PgxPool, []*domain.Product{
		helpers.CreateTestProduct(),
	})

	file := &domain.ImportFile{FileName: "broken.csv", StorageKey: uuid.New()}
	rows := []domain.SaleRow{
		{ProductID: ids[0], Quantity: 1, SoldAt: time.Now()},
		{ProductID: 99999, Quantity: 1, SoldAt: time.Now()}, // violates the FK
	}

	_, err := repo.CreateSync(ctx, file, rows)
	require.Error(t, err)

	// Nothing committed: the file record must not exist either.
	found, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestImportFileRepository_ProcessNext(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewImportFileRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	ids := helpers.SeedTestProducts(t, testDB.PgxPool, []*domain.Product{
		helpers.CreateTestProduct(),
	})
	productID := ids[0]

	file := &domain.ImportFile{FileName: "pending.csv", StorageKey: uuid.New()}
	require.NoError(t, repo.CreatePending(ctx, file))
	assert.Equal(t, domain.ImportStatusAsyncPending, file.Status)

	expand := func(_ context.Context, f *domain.ImportFile) ([]domain.SaleRow, error) {
		assert.Equal(t, file.ID, f.ID)
		return []domain.SaleRow{
			{ProductID: productID, Quantity: 2, SoldAt: time.Now()},
			{ProductID: productID, Quantity: 3, SoldAt: time.Now()},
		}, nil
	}

	processed, created, err := repo.ProcessNext(ctx, expand)
	require.NoError(t, err)
	require.NotNil(t, processed)
	assert.Equal(t, file.ID, processed.ID)
	assert.Equal(t, 2, created)
	assert.Equal(t, domain.ImportStatusAsyncProcessed, processed.Status)

	// A second pass finds nothing; the processed file is left untouched.
	again, _, err := repo.ProcessNext(ctx, expand)
	require.NoError(t, err)
	assert.Nil(t, again)

	stored, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusAsyncProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestImportFileRepository_ProcessNext_ConcurrentClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewImportFileRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	ids := helpers.SeedTestProducts(t, testDB.PgxPool, []*domain.Product{
		helpers.CreateTestProduct(),
	})
	productID := ids[0]

	file := &domain.ImportFile{FileName: "contended.csv", StorageKey: uuid.New()}
	require.NoError(t, repo.CreatePending(ctx, file))

	// expand stalls inside the claim transaction so the second worker
	// arrives while the row lock is held.
	var expandCalls atomic.Int32
	expand := func(context.Context, *domain.ImportFile) ([]domain.SaleRow, error) {
		expandCalls.Add(1)
		time.Sleep(300 * time.Millisecond)
		return []domain.SaleRow{
			{ProductID: productID, Quantity: 4, SoldAt: time.Now()},
		}, nil
	}

	type result struct {
		file *domain.ImportFile
		err  error
	}

	var wg sync.WaitGroup
	results := make([]result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed, _, err := repo.ProcessNext(ctx, expand)
			results[i] = result{file: claimed, err: err}
		}(i)
	}
	wg.Wait()

	claims := 0
	for _, res := range results {
		require.NoError(t, res.err)
		if res.file != nil {
			claims++
			assert.Equal(t, file.ID, res.file.ID)
		}
	}

	// SKIP LOCKED means exactly one worker claims the file; the other
	// sees an empty queue.
	assert.Equal(t, 1, claims)
	assert.Equal(t, int32(1), expandCalls.Load())

	ledger := db.NewLedgerRepository(testDB.Database, helpers.TestLogger())
	_, sold, err := ledger.StockTotals(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sold)

	stored, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusAsyncProcessed, stored.Status)
}

func TestImportFileRepository_ProcessNext_FailureRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewImportFileRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	file := &domain.ImportFile{FileName: "bad.csv", StorageKey: uuid.New()}
	require.NoError(t, repo.CreatePending(ctx, file))

	claimed, _, err := repo.ProcessNext(ctx, func(context.Context, *domain.ImportFile) ([]domain.SaleRow, error) {
		return nil, errors.New("unreadable content")
	})
	require.Error(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, file.ID, claimed.ID)

	// Rolled back: still pending, claimable by the next pass.
	stored, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusAsyncPending, stored.Status)
}

func TestImportFileRepository_RecordFailure_BoundedAttempts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database tests in short mode")
	}

	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewImportFileRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	file := &domain.ImportFile{FileName: "flaky.csv", StorageKey: uuid.New()}
	require.NoError(t, repo.CreatePending(ctx, file))

	const maxAttempts = 3

	for i := 1; i < maxAttempts; i++ {
		require.NoError(t, repo.RecordFailure(ctx, file.ID, "parse error", maxAttempts))

		stored, err := repo.FindByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, i, stored.Attempts)
		assert.Equal(t, domain.ImportStatusAsyncPending, stored.Status)
		assert.Equal(t, "parse error", stored.LastError)
	}

	// The final attempt spends the budget and parks the file.
	require.NoError(t, repo.RecordFailure(ctx, file.ID, "parse error", maxAttempts))

	stored, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, maxAttempts, stored.Attempts)
	assert.Equal(t, domain.ImportStatusAsyncFailed, stored.Status)

	// Failed files are no longer drain candidates.
	claimed, _, err := repo.ProcessNext(ctx, func(context.Context, *domain.ImportFile) ([]domain.SaleRow, error) {
		t.Fatal("must not claim a failed file")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, claimed)
}
