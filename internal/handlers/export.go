// internal/handlers/export.go
package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/pkg/exports"
	"github.com/ammerola/smartbook-be/internal/workers"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles sales report exports
type ExportHandler struct {
	sales      ports.SaleService
	dispatcher *workers.AsynqDispatcher
	cache      *redis_a.Cache
	logger     *slog.Logger
}

// NewExportHandler creates a new export handler. dispatcher may be nil when
// no worker queue is configured, in which case only synchronous export works.
func NewExportHandler(sales ports.SaleService, dispatcher *workers.AsynqDispatcher, cache *redis_a.Cache, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		sales:      sales,
		dispatcher: dispatcher,
		cache:      cache,
		logger:     logger.With(slog.String("handler", "export")),
	}
}

// ExportSales handles GET /api/v1/export/sales. The default response is
// the workbook itself; async=true queues generation and returns a job id.
func (h *ExportHandler) ExportSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := parseSaleSearchParams(r)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.dispatcher == nil {
			respondError(h.logger, w, http.StatusServiceUnavailable, "background export not available")
			return
		}

		jobID := uuid.New().String()
		if err := h.dispatcher.EnqueueSalesReport(ctx, jobID, params.From, params.To); err != nil {
			respondDomainError(h.logger, w, r, err)
			return
		}

		respondJSON(h.logger, w, http.StatusAccepted, map[string]string{
			"job_id": jobID,
			"status": "queued",
		})
		return
	}

	sales, err := h.sales.Search(ctx, params)
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := exports.WriteSalesWorkbook(&buf, sales); err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	filename := "ventas.xlsx"
	if !params.From.IsZero() || !params.To.IsZero() {
		filename = fmt.Sprintf("ventas_%s_%s.xlsx",
			params.From.Format("2006-01-02"), params.To.Format("2006-01-02"))
	}

	h.logger.InfoContext(ctx, "sales export generated",
		slog.Int("rows", len(sales)),
		slog.Int("bytes", buf.Len()))

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetExportJob handles GET /api/v1/export/jobs/{id}
func (h *ExportHandler) GetExportJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("id")

	if h.cache == nil {
		respondError(h.logger, w, http.StatusServiceUnavailable, "job tracking not available")
		return
	}

	var status workers.ReportJobStatus
	err := h.cache.Get(ctx, workers.ReportJobKey(jobID), &status)
	if err == redis_a.ErrCacheMiss {
		respondError(h.logger, w, http.StatusNotFound, "export job not found")
		return
	}
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, status)
}
