// internal/workers/tasks.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// Task type names registered on the worker mux.
const (
	TypeReceiptSend       = "receipt:send"
	TypePackingListImport = "import:packing_list"
	TypeSalesReport       = "report:sales"
	TypeCleanupTempFiles  = "cleanup:temp_files"
	TypeReconcileStock    = "maintenance:reconcile_stock"
)

// ReceiptPayload identifies the committed sale whose receipt must go out.
type ReceiptPayload struct {
	SaleID int64 `json:"sale_id"`
}

// PackingListPayload points the import worker at an uploaded supplier PDF.
type PackingListPayload struct {
	JobID    string `json:"job_id"`
	FilePath string `json:"file_path"`
}

// SalesReportPayload describes a sales report generation job.
type SalesReportPayload struct {
	JobID string    `json:"job_id"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// NewReceiptTask builds the post-commit receipt task. Receipt delivery is
// one attempt only: the sale is already committed and a retry storm of
// duplicate emails is worse than a missing receipt.
func NewReceiptTask(saleID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ReceiptPayload{SaleID: saleID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt payload: %w", err)
	}
	return asynq.NewTask(TypeReceiptSend, payload,
		asynq.MaxRetry(0),
		asynq.Queue("critical"),
		asynq.Timeout(time.Minute),
	), nil
}

// NewPackingListTask builds a supplier packing-list import task.
func NewPackingListTask(jobID, filePath string, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(PackingListPayload{JobID: jobID, FilePath: filePath})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal packing list payload: %w", err)
	}
	return asynq.NewTask(TypePackingListImport, payload,
		asynq.MaxRetry(2),
		asynq.Queue("default"),
		asynq.Timeout(timeout),
	), nil
}

// NewSalesReportTask builds a sales report generation task.
func NewSalesReportTask(jobID string, from, to time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SalesReportPayload{JobID: jobID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report payload: %w", err)
	}
	return asynq.NewTask(TypeSalesReport, payload,
		asynq.MaxRetry(1),
		asynq.Queue("low"),
		asynq.Timeout(5*time.Minute),
	), nil
}

// AsynqDispatcher enqueues background tasks over the asynq client. It is
// the ReceiptDispatcher the sale service calls after commit.
type AsynqDispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

var _ ports.ReceiptDispatcher = (*AsynqDispatcher)(nil)

// NewAsynqDispatcher creates a dispatcher over an asynq client.
func NewAsynqDispatcher(client *asynq.Client, logger *slog.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{
		client: client,
		logger: logger.With(slog.String("component", "dispatcher")),
	}
}

// DispatchReceipt enqueues the receipt task for a committed sale.
func (d *AsynqDispatcher) DispatchReceipt(ctx context.Context, saleID int64) error {
	task, err := NewReceiptTask(saleID)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue receipt task: %w", err)
	}

	d.logger.InfoContext(ctx, "receipt task enqueued",
		slog.Int64("sale_id", saleID),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue))

	return nil
}

// EnqueuePackingListImport enqueues an import job for an uploaded PDF.
func (d *AsynqDispatcher) EnqueuePackingListImport(ctx context.Context, jobID, filePath string, timeout time.Duration) error {
	task, err := NewPackingListTask(jobID, filePath, timeout)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue packing list task: %w", err)
	}

	d.logger.InfoContext(ctx, "packing list import enqueued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID))

	return nil
}

// EnqueueSalesReport enqueues sales report generation.
func (d *AsynqDispatcher) EnqueueSalesReport(ctx context.Context, jobID string, from, to time.Time) error {
	task, err := NewSalesReportTask(jobID, from, to)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue report task: %w", err)
	}

	d.logger.InfoContext(ctx, "sales report enqueued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID))

	return nil
}
