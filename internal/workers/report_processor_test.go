// internal/workers/report_processor_test.go
package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/workers"
	"github.com/ammerola/smartbook-be/test/helpers"
	"github.com/ammerola/smartbook-be/test/mocks"
)

func reportTask(t *testing.T, payload workers.SalesReportPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(workers.TypeSalesReport, raw)
}

func TestReportProcessor_GenerateSalesReport(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	t.Run("uploads_workbook_and_records_download_url", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		cache := setupImportCache(t)

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().
			Search(gomock.Any(), ports.SaleSearchParams{From: from, To: to}).
			Return([]domain.SaleSummary{
				{ID: 1, ReceiptNumber: "V-2026-000001", Date: from, CustomerID: 7, Total: decimal.RequireFromString("30.00")},
			}, nil)

		storageClient := mocks.NewMockStorageClient(ctrl)
		storageClient.EXPECT().
			Upload(gomock.Any(), "reports/sales-rep-1.xlsx", gomock.Any(), gomock.Any()).
			Return("s3://smartbook-documents/reports/sales-rep-1.xlsx", nil)
		storageClient.EXPECT().
			GetPresignedURL(gomock.Any(), "reports/sales-rep-1.xlsx", gomock.Any()).
			Return("https://example.com/sales-rep-1.xlsx", nil)

		processor := workers.NewReportProcessor(sales, storageClient, cache, helpers.TestLogger())

		payload := workers.SalesReportPayload{JobID: "rep-1", From: from, To: to}
		require.NoError(t, processor.GenerateSalesReport(ctx, reportTask(t, payload)))

		var status workers.ReportJobStatus
		require.NoError(t, cache.Get(ctx, workers.ReportJobKey("rep-1"), &status))
		assert.Equal(t, "completed", status.Status)
		assert.Equal(t, 1, status.Rows)
		assert.Equal(t, "https://example.com/sales-rep-1.xlsx", status.DownloadURL)
	})

	t.Run("marks_job_failed_when_search_fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		cache := setupImportCache(t)

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().
			Search(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("database down"))

		storageClient := mocks.NewMockStorageClient(ctrl)

		processor := workers.NewReportProcessor(sales, storageClient, cache, helpers.TestLogger())

		payload := workers.SalesReportPayload{JobID: "rep-2", From: from, To: to}
		require.Error(t, processor.GenerateSalesReport(ctx, reportTask(t, payload)))

		var status workers.ReportJobStatus
		require.NoError(t, cache.Get(ctx, workers.ReportJobKey("rep-2"), &status))
		assert.Equal(t, "failed", status.Status)
		assert.Equal(t, "database down", status.Error)
	})
}
