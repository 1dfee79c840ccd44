// internal/handlers/import.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
	"github.com/ammerola/stockledger-be/internal/workers"
)

// ImportHandler handles sales file import operations
type ImportHandler struct {
	service     ports.ImportService
	asynqClient *asynq.Client
	logger      *slog.Logger
	maxFileSize int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ports.ImportService, asynqClient *asynq.Client, logger *slog.Logger, maxFileSize int64) *ImportHandler {
	return &ImportHandler{
		service:     service,
		asynqClient: asynqClient,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
	}
}

// ImportSales handles POST /api/v1/import/sales. The form field `mode`
// selects the path: `sync` (default) materializes the rows before
// responding, `async` records the file pending and queues a drain pass.
func (h *ImportHandler) ImportSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read upload",
			slog.String("file_name", header.Filename),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	mode := r.FormValue("mode")
	if mode == "" {
		mode = "sync"
	}

	switch mode {
	case "sync":
		h.importSync(w, r, data, header.Filename)
	case "async":
		h.importAsync(w, r, data, header.Filename)
	default:
		h.respondError(w, http.StatusBadRequest, "Invalid mode. Must be sync or async")
	}
}

func (h *ImportHandler) importSync(w http.ResponseWriter, r *http.Request, data []byte, fileName string) {
	ctx := r.Context()

	created, err := h.service.ImportSync(ctx, data, fileName)
	if err != nil {
		if domain.IsValidation(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "sync import failed",
			slog.String("file_name", fileName),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to import sales file")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"file_name":     fileName,
		"sales_created": created,
		"status":        string(domain.ImportStatusSync),
	})
}

func (h *ImportHandler) importAsync(w http.ResponseWriter, r *http.Request, data []byte, fileName string) {
	ctx := r.Context()

	record, err := h.service.Enqueue(ctx, data, fileName)
	if err != nil {
		if domain.IsValidation(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "failed to enqueue import",
			slog.String("file_name", fileName),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import")
		return
	}

	// The record is already pending; a lost task only delays processing
	// until the periodic sweep.
	info, err := h.asynqClient.Enqueue(workers.NewDrainTask(),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to queue drain task",
			slog.Int64("import_file_id", record.ID),
			slog.Any("error", err))
	} else {
		h.logger.InfoContext(ctx, "sales import queued",
			slog.Int64("import_file_id", record.ID),
			slog.String("task_id", info.ID),
			slog.String("file_name", fileName))
	}

	h.respondJSON(w, http.StatusAccepted, record)
}

// GetImportFile handles GET /api/v1/import/files/{id}
func (h *ImportHandler) GetImportFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid import file ID format")
		return
	}

	record, err := h.service.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Import file not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get import file",
			slog.Int64("import_file_id", id),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve import file")
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// Helper methods

func (h *ImportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.Any("error", err))
	}
}

func (h *ImportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
