// internal/adapters/db/import_file_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// importFileRepository implements ports.ImportFileRepository
type importFileRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewImportFileRepository creates a new import file repository
func NewImportFileRepository(db *Database, logger *slog.Logger) ports.ImportFileRepository {
	return &importFileRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "import_file")),
	}
}

// CreateSync inserts the file record and all of its sales in one
// transaction. Bulk imports write directly to the sale ledger; the
// per-sale stock check does not apply here.
func (r *importFileRepository) CreateSync(ctx context.Context, file *domain.ImportFile, rows []domain.SaleRow) (int, error) {
	var created int

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := insertFile(ctx, tx, file, domain.ImportStatusSync); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.QueryRow(ctx,
			`UPDATE import_files SET processed_at = $2 WHERE id = $1 RETURNING processed_at`,
			file.ID, now,
		).Scan(&file.ProcessedAt); err != nil {
			return fmt.Errorf("failed to stamp import file: %w", err)
		}

		n, err := insertSales(ctx, tx, file.ID, rows)
		if err != nil {
			return err
		}
		created = n

		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "sales file imported",
		slog.Int64("import_file_id", file.ID),
		slog.Int("sales_created", created))

	return created, nil
}

// CreatePending inserts the file record with status async_pending
func (r *importFileRepository) CreatePending(ctx context.Context, file *domain.ImportFile) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		return insertFile(ctx, tx, file, domain.ImportStatusAsyncPending)
	})
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "sales file queued",
		slog.Int64("import_file_id", file.ID),
		slog.String("storage_key", file.StorageKey.String()))

	return nil
}

// FindByID retrieves an import file by ID. Returns nil without error when
// the record does not exist.
func (r *importFileRepository) FindByID(ctx context.Context, id int64) (*domain.ImportFile, error) {
	query := `
		SELECT id, file_name, storage_key, status, attempts, last_error, created_at, processed_at
		FROM import_files
		WHERE id = $1`

	file, err := scanImportFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find import file: %w", err)
	}

	return file, nil
}

// ProcessNext claims the oldest pending file under FOR UPDATE SKIP LOCKED
// so concurrent drain workers never pick the same file, expands it into
// sale rows and materializes them, all in one transaction. A failure in
// expand or insert rolls everything back; the claimed file is still
// returned so the caller can record the failure out of band.
func (r *importFileRepository) ProcessNext(ctx context.Context, expand func(context.Context, *domain.ImportFile) ([]domain.SaleRow, error)) (*domain.ImportFile, int, error) {
	var claimed *domain.ImportFile
	var created int

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT id, file_name, storage_key, status, attempts, last_error, created_at, processed_at
			FROM import_files
			WHERE status = $1
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED`

		file, err := scanImportFile(tx.QueryRow(ctx, query, domain.ImportStatusAsyncPending))
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to claim import file: %w", err)
		}
		claimed = file

		rows, err := expand(ctx, file)
		if err != nil {
			return fmt.Errorf("failed to expand import file %d: %w", file.ID, err)
		}

		n, err := insertSales(ctx, tx, file.ID, rows)
		if err != nil {
			return err
		}
		created = n

		now := time.Now()
		if err := tx.QueryRow(ctx,
			`UPDATE import_files SET status = $2, processed_at = $3 WHERE id = $1 RETURNING processed_at`,
			file.ID, domain.ImportStatusAsyncProcessed, now,
		).Scan(&file.ProcessedAt); err != nil {
			return fmt.Errorf("failed to mark import file processed: %w", err)
		}
		file.Status = domain.ImportStatusAsyncProcessed

		return nil
	})
	if err != nil {
		return claimed, 0, err
	}
	if claimed == nil {
		return nil, 0, nil
	}

	r.logger.InfoContext(ctx, "pending sales file processed",
		slog.Int64("import_file_id", claimed.ID),
		slog.String("file_name", claimed.FileName),
		slog.Int("sales_created", created))

	return claimed, created, nil
}

// RecordFailure increments the attempt counter and stores the error. The
// file stays async_pending until the attempt budget is spent, then flips
// to async_failed and leaves the claim queue for good.
func (r *importFileRepository) RecordFailure(ctx context.Context, id int64, procErr string, maxAttempts int) error {
	query := `
		UPDATE import_files
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $1
		RETURNING attempts, status`

	var attempts int
	var status string
	err := r.db.QueryRow(ctx, query, id, procErr, maxAttempts, domain.ImportStatusAsyncFailed).
		Scan(&attempts, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("import file %d: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to record import failure: %w", err)
	}

	r.logger.WarnContext(ctx, "import attempt failed",
		slog.Int64("import_file_id", id),
		slog.Int("attempts", attempts),
		slog.String("status", status),
		slog.String("error", procErr))

	return nil
}

// insertFile inserts the import file record within tx and fills in the
// generated ID and timestamps.
func insertFile(ctx context.Context, tx pgx.Tx, file *domain.ImportFile, status domain.ImportStatus) error {
	query := `
		INSERT INTO import_files (file_name, storage_key, status, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query, file.FileName, file.StorageKey, status, time.Now()).
		Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert import file: %w", err)
	}

	file.Status = status
	file.Attempts = 0

	return nil
}

// insertSales bulk inserts one sale per row, all tagged with the file ID.
func insertSales(ctx context.Context, tx pgx.Tx, fileID int64, rows []domain.SaleRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO sales (product_id, quantity, sold_at, import_file_id)
			 VALUES ($1, $2, $3, $4)`,
			row.ProductID, row.Quantity, row.SoldAt, fileID,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("failed to insert sale row %d: %w", i, err)
		}
	}

	return len(rows), nil
}

// scanImportFile reads one import_files row from any pgx row source.
func scanImportFile(row pgx.Row) (*domain.ImportFile, error) {
	file := &domain.ImportFile{}
	var lastError sql.NullString

	err := row.Scan(
		&file.ID, &file.FileName, &file.StorageKey, &file.Status,
		&file.Attempts, &lastError, &file.CreatedAt, &file.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	file.LastError = lastError.String

	return file, nil
}
