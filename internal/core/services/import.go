// internal/core/services/import.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// DefaultMaxAttempts is the attempt budget before a pending file is
// marked async_failed.
const DefaultMaxAttempts = 3

// ImportService runs the sales file import pipeline. Uploaded content is
// staged under a generated key; the sync path materializes it
// immediately, the async path records it pending for a drain pass.
type ImportService struct {
	files  ports.ImportFileRepository
	stage  ports.FileStage
	parser ports.SalesFileParser

	maxAttempts       int
	processingTimeout time.Duration
	stop              func(ports.DrainStats) bool
	logger            *slog.Logger
}

// Statically assert that *ImportService implements the ImportService interface.
var _ ports.ImportService = (*ImportService)(nil)

// ImportOption configures an ImportService
type ImportOption func(*ImportService)

// WithMaxAttempts overrides the attempt budget for pending files
func WithMaxAttempts(n int) ImportOption {
	return func(s *ImportService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithProcessingTimeout bounds the time spent on a single file during a
// drain pass. Zero means no bound. A file that exceeds the bound fails
// with context.DeadlineExceeded and consumes one of its attempts.
func WithProcessingTimeout(d time.Duration) ImportOption {
	return func(s *ImportService) {
		if d > 0 {
			s.processingTimeout = d
		}
	}
}

// WithStopCondition injects a predicate checked between files during a
// drain pass. Returning true ends the pass early; the remaining files
// stay pending for the next pass.
func WithStopCondition(stop func(ports.DrainStats) bool) ImportOption {
	return func(s *ImportService) {
		if stop != nil {
			s.stop = stop
		}
	}
}

// NewImportService creates a new import service
func NewImportService(files ports.ImportFileRepository, stage ports.FileStage, parser ports.SalesFileParser, logger *slog.Logger, opts ...ImportOption) *ImportService {
	s := &ImportService{
		files:       files,
		stage:       stage,
		parser:      parser,
		maxAttempts: DefaultMaxAttempts,
		stop:        func(ports.DrainStats) bool { return false },
		logger:      logger.With(slog.String("service", "import")),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ImportSync parses the upload and materializes its rows as sales in one
// transaction. The content is parsed before anything is persisted, so a
// malformed file leaves no trace.
func (s *ImportService) ImportSync(ctx context.Context, data []byte, fileName string) (int, error) {
	rows, err := s.parser.Parse(fileName, data)
	if err != nil {
		return 0, err
	}

	file := &domain.ImportFile{
		FileName:   fileName,
		StorageKey: uuid.New(),
	}

	if err := s.stage.Put(ctx, file.StorageKey.String(), data); err != nil {
		return 0, fmt.Errorf("failed to stage upload: %w", err)
	}

	created, err := s.files.CreateSync(ctx, file, rows)
	if err != nil {
		// Best effort: the staged bytes are orphaned otherwise
		if delErr := s.stage.Delete(ctx, file.StorageKey.String()); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up staged upload",
				slog.String("storage_key", file.StorageKey.String()),
				slog.Any("error", delErr))
		}
		return 0, err
	}

	s.logger.InfoContext(ctx, "sales file imported synchronously",
		slog.Int64("import_file_id", file.ID),
		slog.String("file_name", fileName),
		slog.Int("sales_created", created))

	return created, nil
}

// Enqueue stages the upload and records it async_pending. Content is not
// parsed here; a bad file surfaces during the drain pass and burns its
// attempt budget there.
func (s *ImportService) Enqueue(ctx context.Context, data []byte, fileName string) (*domain.ImportFile, error) {
	if len(data) == 0 {
		return nil, domain.NewValidationError("file is empty")
	}

	file := &domain.ImportFile{
		FileName:   fileName,
		StorageKey: uuid.New(),
	}

	if err := s.stage.Put(ctx, file.StorageKey.String(), data); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	if err := s.files.CreatePending(ctx, file); err != nil {
		if delErr := s.stage.Delete(ctx, file.StorageKey.String()); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up staged upload",
				slog.String("storage_key", file.StorageKey.String()),
				slog.Any("error", delErr))
		}
		return nil, err
	}

	return file, nil
}

// Drain processes pending files oldest-first, one transaction per file,
// until none remain, the stop condition fires, or a file fails. A
// failure is recorded against the file before the pass ends, so the next
// pass either retries it or skips past it once the budget is spent.
func (s *ImportService) Drain(ctx context.Context) (ports.DrainStats, error) {
	start := time.Now()
	stats := ports.DrainStats{}

	for {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}
		if s.stop(stats) {
			s.logger.InfoContext(ctx, "drain pass stopped early",
				slog.Int("processed", stats.Processed))
			break
		}

		file, salesAdded, err := s.processNext(ctx)
		if err != nil {
			if file != nil {
				if rfErr := s.files.RecordFailure(ctx, file.ID, err.Error(), s.maxAttempts); rfErr != nil {
					s.logger.ErrorContext(ctx, "failed to record import failure",
						slog.Int64("import_file_id", file.ID),
						slog.Any("error", rfErr))
				}
			}
			stats.Elapsed = time.Since(start)
			return stats, err
		}
		if file == nil {
			break
		}

		stats.Processed++
		stats.SalesAdded += salesAdded
	}

	stats.Elapsed = time.Since(start)

	s.logger.InfoContext(ctx, "drain pass completed",
		slog.Int("processed", stats.Processed),
		slog.Int("sales_added", stats.SalesAdded),
		slog.Duration("elapsed", stats.Elapsed))

	return stats, nil
}

// GetFile retrieves an import file record by ID
func (s *ImportService) GetFile(ctx context.Context, id int64) (*domain.ImportFile, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get import file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("import file %d: %w", id, domain.ErrNotFound)
	}

	return file, nil
}

// processNext claims one pending file under the configured per-file
// timeout, if any.
func (s *ImportService) processNext(ctx context.Context) (*domain.ImportFile, int, error) {
	if s.processingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.processingTimeout)
		defer cancel()
	}

	return s.files.ProcessNext(ctx, s.expand)
}

// expand fetches a claimed file's staged bytes and parses them into sale
// rows. Runs inside the claim transaction.
func (s *ImportService) expand(ctx context.Context, file *domain.ImportFile) ([]domain.SaleRow, error) {
	data, err := s.stage.Get(ctx, file.StorageKey.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staged upload: %w", err)
	}

	return s.parser.Parse(file.FileName, data)
}
