// internal/workers/report_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/adapters/storage"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/pkg/exports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportJobStatus is the polled state of a sales report job.
type ReportJobStatus struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	Rows        int       `json:"rows"`
	DownloadURL string    `json:"download_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReportJobKey builds the cache key of a report job record.
func ReportJobKey(jobID string) string {
	return redis_a.BuildKey(redis_a.PrefixExport, jobID)
}

// ReportProcessor generates sales report workbooks in the background and
// parks them in object storage for download.
type ReportProcessor struct {
	sales   ports.SaleService
	storage storage.StorageClient
	cache   *redis_a.Cache
	logger  *slog.Logger
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(sales ports.SaleService, storageClient storage.StorageClient, cache *redis_a.Cache, logger *slog.Logger) *ReportProcessor {
	return &ReportProcessor{
		sales:   sales,
		storage: storageClient,
		cache:   cache,
		logger:  logger.With(slog.String("processor", "report")),
	}
}

// GenerateSalesReport builds the workbook for the requested date range.
func (p *ReportProcessor) GenerateSalesReport(ctx context.Context, t *asynq.Task) error {
	var payload SalesReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "generating sales report",
		slog.String("job_id", payload.JobID),
		slog.Time("from", payload.From),
		slog.Time("to", payload.To))

	sales, err := p.sales.Search(ctx, ports.SaleSearchParams{
		From: payload.From,
		To:   payload.To,
	})
	if err != nil {
		p.saveStatus(ctx, ReportJobStatus{JobID: payload.JobID, Status: "failed", Error: err.Error()})
		return fmt.Errorf("failed to search sales: %w", err)
	}

	var buf bytes.Buffer
	if err := exports.WriteSalesWorkbook(&buf, sales); err != nil {
		p.saveStatus(ctx, ReportJobStatus{JobID: payload.JobID, Status: "failed", Error: err.Error()})
		return fmt.Errorf("failed to build workbook: %w", err)
	}

	key := fmt.Sprintf("reports/sales-%s.xlsx", payload.JobID)
	if _, err := p.storage.Upload(ctx, key, &buf, xlsxContentType); err != nil {
		p.saveStatus(ctx, ReportJobStatus{JobID: payload.JobID, Status: "failed", Error: err.Error()})
		return fmt.Errorf("failed to upload report: %w", err)
	}

	url, err := p.storage.GetPresignedURL(ctx, key, importJobTTL)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to presign report URL",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	p.saveStatus(ctx, ReportJobStatus{
		JobID:       payload.JobID,
		Status:      "completed",
		Rows:        len(sales),
		DownloadURL: url,
	})

	p.logger.InfoContext(ctx, "sales report generated",
		slog.String("job_id", payload.JobID),
		slog.Int("rows", len(sales)),
		slog.String("key", key))

	return nil
}

func (p *ReportProcessor) saveStatus(ctx context.Context, status ReportJobStatus) {
	status.UpdatedAt = time.Now()
	if err := p.cache.SetWithTTL(ctx, ReportJobKey(status.JobID), status, importJobTTL); err != nil {
		p.logger.WarnContext(ctx, "failed to save report job status",
			slog.String("job_id", status.JobID),
			slog.String("error", err.Error()))
	}
}
