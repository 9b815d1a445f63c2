// internal/workers/packinglist_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// Import job lifecycle states stored under the import: cache prefix.
const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusPartial    = "completed_with_errors"
	ImportStatusFailed     = "failed"
)

// importJobTTL keeps finished job records around long enough for the
// client to poll them.
const importJobTTL = 24 * time.Hour

// ImportJobStatus is the polled state of a packing-list import job.
type ImportJobStatus struct {
	JobID          string    `json:"job_id"`
	Status         string    `json:"status"`
	RowsParsed     int       `json:"rows_parsed"`
	IntakesCreated int       `json:"intakes_created"`
	Errors         []string  `json:"errors,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ImportJobKey builds the cache key of an import job record.
func ImportJobKey(jobID string) string {
	return redis_a.BuildKey(redis_a.PrefixImport, jobID)
}

// PackingListProcessor turns supplier packing-list PDFs into intake
// records. Each parsed row goes through the intake service so lot code
// assignment and stock reconciliation behave exactly like manual intake.
type PackingListProcessor struct {
	intakes ports.IntakeService
	cache   *redis_a.Cache
	logger  *slog.Logger
}

// NewPackingListProcessor creates a new packing list processor
func NewPackingListProcessor(intakes ports.IntakeService, cache *redis_a.Cache, logger *slog.Logger) *PackingListProcessor {
	return &PackingListProcessor{
		intakes: intakes,
		cache:   cache,
		logger:  logger.With(slog.String("processor", "packing_list")),
	}
}

// ProcessPackingList parses the uploaded PDF and creates one intake per row.
func (p *PackingListProcessor) ProcessPackingList(ctx context.Context, t *asynq.Task) error {
	var payload PackingListPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing packing list",
		slog.String("job_id", payload.JobID),
		slog.String("file", payload.FilePath))

	p.saveStatus(ctx, ImportJobStatus{JobID: payload.JobID, Status: ImportStatusProcessing})

	rows, err := p.extractRows(ctx, payload.FilePath)
	if err != nil {
		p.saveStatus(ctx, ImportJobStatus{
			JobID:  payload.JobID,
			Status: ImportStatusFailed,
			Errors: []string{err.Error()},
		})
		return fmt.Errorf("failed to extract rows: %w", err)
	}

	status := ImportJobStatus{
		JobID:      payload.JobID,
		RowsParsed: len(rows),
	}

	for _, row := range rows {
		_, err := p.intakes.Create(ctx, ports.CreateIntakeParams{
			BookID:       row.bookID,
			Units:        row.units,
			PurchaseCost: row.purchaseCost,
			SalePrice:    row.salePrice,
		})
		if err != nil {
			if domain.IsBusinessError(err) {
				status.Errors = append(status.Errors, fmt.Sprintf("book %d: %v", row.bookID, err))
				continue
			}
			status.Status = ImportStatusFailed
			status.Errors = append(status.Errors, err.Error())
			p.saveStatus(ctx, status)
			return fmt.Errorf("failed to create intake for book %d: %w", row.bookID, err)
		}
		status.IntakesCreated++
	}

	status.Status = ImportStatusCompleted
	if len(status.Errors) > 0 {
		status.Status = ImportStatusPartial
	}
	p.saveStatus(ctx, status)

	// Uploaded files live in the temp dir, remove them once consumed.
	if strings.HasPrefix(payload.FilePath, os.TempDir()) {
		_ = os.Remove(payload.FilePath)
	}

	p.logger.InfoContext(ctx, "packing list processed",
		slog.String("job_id", payload.JobID),
		slog.Int("rows_parsed", status.RowsParsed),
		slog.Int("intakes_created", status.IntakesCreated),
		slog.Int("row_errors", len(status.Errors)))

	return nil
}

func (p *PackingListProcessor) saveStatus(ctx context.Context, status ImportJobStatus) {
	status.UpdatedAt = time.Now()
	if err := p.cache.SetWithTTL(ctx, ImportJobKey(status.JobID), status, importJobTTL); err != nil {
		p.logger.WarnContext(ctx, "failed to save import job status",
			slog.String("job_id", status.JobID),
			slog.String("error", err.Error()))
	}
}

type packingListRow struct {
	bookID       int64
	title        string
	units        int
	purchaseCost decimal.Decimal
	salePrice    decimal.Decimal
}

func (p *PackingListProcessor) extractRows(ctx context.Context, filePath string) ([]packingListRow, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textLines []string
	totalPages := r.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.WarnContext(ctx, "failed to extract text from page",
				slog.Int("page", pageNum),
				slog.String("error", err.Error()))
			continue
		}

		textLines = append(textLines, strings.Split(text, "\n")...)
	}

	rows := p.parseRows(textLines)

	p.logger.InfoContext(ctx, "extracted rows from packing list",
		slog.String("file", filePath),
		slog.Int("count", len(rows)))

	return rows, nil
}

var (
	// Table starts after a header naming the code/quantity/cost columns,
	// in Spanish or English depending on the supplier.
	packingHeaderRe = regexp.MustCompile(`(?i)(CODIGO.*CANT.*COSTO|CODE.*QTY.*COST)`)
	packingFooterRe = regexp.MustCompile(`(?i)(TOTAL|RECIBIDO POR|RECEIVED BY)`)

	// <book code> <title> <units> <purchase cost> <sale price>
	packingRowRe = regexp.MustCompile(`^\s*(\d+)\s+(.+?)\s+(\d+)\s+\$?\s*([\d,]+\.\d{2})\s+\$?\s*([\d,]+\.\d{2})\s*$`)
)

func (p *PackingListProcessor) parseRows(lines []string) []packingListRow {
	var rows []packingListRow

	startIdx := 0
	for i, line := range lines {
		if packingHeaderRe.MatchString(line) {
			startIdx = i + 1
			break
		}
	}

	for i := startIdx; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if packingFooterRe.MatchString(line) {
			break
		}

		m := packingRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		bookID, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		units, err := strconv.Atoi(m[3])
		if err != nil || units <= 0 {
			continue
		}

		rows = append(rows, packingListRow{
			bookID:       bookID,
			title:        strings.TrimSpace(m[2]),
			units:        units,
			purchaseCost: parseAmount(m[4]),
			salePrice:    parseAmount(m[5]),
		})
	}

	return rows
}

func parseAmount(val string) decimal.Decimal {
	cleaned := strings.ReplaceAll(val, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
