// internal/handlers/import.go
package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/workers"
)

// ImportHandler handles packing list uploads
type ImportHandler struct {
	dispatcher  *workers.AsynqDispatcher
	cache       *redis_a.Cache
	logger      *slog.Logger
	maxFileSize int64
	uploadDir   string
	jobTimeout  time.Duration
}

// NewImportHandler creates a new import handler
func NewImportHandler(dispatcher *workers.AsynqDispatcher, cache *redis_a.Cache, logger *slog.Logger, maxFileSize int64, uploadDir string, jobTimeout time.Duration) *ImportHandler {
	return &ImportHandler{
		dispatcher:  dispatcher,
		cache:       cache,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
		uploadDir:   uploadDir,
		jobTimeout:  jobTimeout,
	}
}

// ImportPackingList handles POST /api/v1/import/packing-list. It stores the
// uploaded supplier PDF in the temp dir and queues a background parse that
// creates one intake per packing list row.
func (h *ImportHandler) ImportPackingList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Header.Get("Content-Type") != "application/pdf" {
		respondError(h.logger, w, http.StatusBadRequest, "only PDF files are allowed")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.ErrorContext(ctx, "failed to create upload directory", slog.String("error", err.Error()))
		respondError(h.logger, w, http.StatusInternalServerError, "failed to prepare upload")
		return
	}

	tempFile := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename)))
	dst, err := os.Create(tempFile)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create temp file", slog.String("error", err.Error()))
		respondError(h.logger, w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to save file", slog.String("error", err.Error()))
		respondError(h.logger, w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	jobID := uuid.New().String()
	if err := h.dispatcher.EnqueuePackingListImport(ctx, jobID, tempFile, h.jobTimeout); err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to enqueue import", slog.String("error", err.Error()))
		respondError(h.logger, w, http.StatusInternalServerError, "failed to queue import job")
		return
	}

	h.logger.InfoContext(ctx, "packing list import queued",
		slog.String("job_id", jobID),
		slog.String("filename", header.Filename))

	respondJSON(h.logger, w, http.StatusAccepted, map[string]string{
		"job_id":  jobID,
		"status":  "queued",
		"message": "packing list has been queued for processing",
	})
}

// GetImportJob handles GET /api/v1/import/jobs/{id}
func (h *ImportHandler) GetImportJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("id")

	var status workers.ImportJobStatus
	err := h.cache.Get(ctx, workers.ImportJobKey(jobID), &status)
	if err == redis_a.ErrCacheMiss {
		respondError(h.logger, w, http.StatusNotFound, "import job not found")
		return
	}
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, status)
}
