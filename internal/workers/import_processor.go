// internal/workers/import_processor.go
package workers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// Task type identifiers
const (
	// TypeImportDrain runs one drain pass over pending sales imports.
	TypeImportDrain = "import:drain"
	// TypeImportSweep is the periodic re-enqueue of a drain pass, so
	// pending files left behind by a crashed worker are picked up again.
	TypeImportSweep = "import:sweep"
)

// NewDrainTask creates a drain pass task. The payload is empty; the pass
// discovers its work from the database.
func NewDrainTask() *asynq.Task {
	return asynq.NewTask(TypeImportDrain, nil)
}

// ImportProcessor handles sales import drain tasks
type ImportProcessor struct {
	service ports.ImportService
	logger  *slog.Logger
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(service ports.ImportService, logger *slog.Logger) *ImportProcessor {
	return &ImportProcessor{
		service: service,
		logger:  logger.With(slog.String("processor", "import")),
	}
}

// ProcessDrain runs one drain pass. A failed file has its failure
// recorded by the service before the error propagates, so asynq's retry
// of this task resumes with the next candidate rather than looping on
// the same file forever.
func (p *ImportProcessor) ProcessDrain(ctx context.Context, t *asynq.Task) error {
	stats, err := p.service.Drain(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "drain pass failed",
			slog.Int("processed", stats.Processed),
			slog.Any("error", err))
		return err
	}

	p.logger.InfoContext(ctx, "drain pass finished",
		slog.Int("processed", stats.Processed),
		slog.Int("sales_added", stats.SalesAdded),
		slog.Duration("elapsed", stats.Elapsed))

	return nil
}

// ProcessSweep re-enqueues a drain pass on the periodic schedule.
func (p *ImportProcessor) ProcessSweep(ctx context.Context, t *asynq.Task) error {
	return p.ProcessDrain(ctx, t)
}
