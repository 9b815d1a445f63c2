// internal/workers/packinglist_processor_test.go
package workers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/workers"
	"github.com/ammerola/smartbook-be/test/helpers"
	"github.com/ammerola/smartbook-be/test/mocks"
)

// A structurally valid single page PDF with no text content. The parser
// must complete with zero rows instead of failing.
var emptyPDF = []byte(`%PDF-1.4
1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj 2 0 obj<</Type/Pages/Count 1/Kids[3 0 R]>>endobj 3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]>>endobj
xref
0 4
0000000000 65535 f
0000000009 00000 n
0000000052 00000 n
0000000101 00000 n
trailer<</Size 4/Root 1 0 R>>
startxref
164
%%EOF`)

func setupImportCache(t *testing.T) *redis_a.Cache {
	t.Helper()
	tr := helpers.SetupTestRedis(t)
	return redis_a.NewCache(tr.Client, time.Hour, helpers.TestLogger())
}

func packingListTask(t *testing.T, payload workers.PackingListPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(workers.TypePackingListImport, raw)
}

func TestPackingListProcessor_ProcessPackingList(t *testing.T) {
	ctx := context.Background()

	t.Run("completes_with_zero_rows_for_textless_pdf", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		cache := setupImportCache(t)
		intakes := mocks.NewMockIntakeService(ctrl)
		processor := workers.NewPackingListProcessor(intakes, cache, helpers.TestLogger())

		filePath := helpers.CreateTempFile(t, emptyPDF, ".pdf")
		payload := workers.PackingListPayload{JobID: "job-1", FilePath: filePath}

		err := processor.ProcessPackingList(ctx, packingListTask(t, payload))
		require.NoError(t, err)

		var status workers.ImportJobStatus
		require.NoError(t, cache.Get(ctx, workers.ImportJobKey("job-1"), &status))
		assert.Equal(t, workers.ImportStatusCompleted, status.Status)
		assert.Equal(t, 0, status.RowsParsed)
		assert.Equal(t, 0, status.IntakesCreated)
		assert.Empty(t, status.Errors)
	})

	t.Run("marks_job_failed_when_file_missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		cache := setupImportCache(t)
		intakes := mocks.NewMockIntakeService(ctrl)
		processor := workers.NewPackingListProcessor(intakes, cache, helpers.TestLogger())

		payload := workers.PackingListPayload{JobID: "job-2", FilePath: "/nonexistent/packing.pdf"}

		err := processor.ProcessPackingList(ctx, packingListTask(t, payload))
		require.Error(t, err)

		var status workers.ImportJobStatus
		require.NoError(t, cache.Get(ctx, workers.ImportJobKey("job-2"), &status))
		assert.Equal(t, workers.ImportStatusFailed, status.Status)
		require.NotEmpty(t, status.Errors)
	})

	t.Run("rejects_malformed_payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		cache := setupImportCache(t)
		intakes := mocks.NewMockIntakeService(ctrl)
		processor := workers.NewPackingListProcessor(intakes, cache, helpers.TestLogger())

		task := asynq.NewTask(workers.TypePackingListImport, []byte("{not json"))
		err := processor.ProcessPackingList(ctx, task)
		require.Error(t, err)
	})
}
