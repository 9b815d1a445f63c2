// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/smartbook-be/internal/adapters/db"
	"github.com/ammerola/smartbook-be/internal/pkg/config"
)

// MaintenanceProcessor handles periodic cleanup and stock repair tasks
type MaintenanceProcessor struct {
	db     *db.Database
	config *config.Config
	logger *slog.Logger
}

// NewMaintenanceProcessor creates a new maintenance processor
func NewMaintenanceProcessor(database *db.Database, cfg *config.Config, logger *slog.Logger) *MaintenanceProcessor {
	return &MaintenanceProcessor{
		db:     database,
		config: cfg,
		logger: logger.With(slog.String("processor", "maintenance")),
	}
}

// ReconcileStock repairs denormalized book stock that drifted from the
// per-lot truth. Normal operation keeps the two in sync; this catches
// drift from manual data fixes.
func (p *MaintenanceProcessor) ReconcileStock(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "reconciling book stock")

	query := `
		UPDATE books b
		SET stock = lot_totals.total, updated_at = NOW()
		FROM (
			SELECT b2.id, COALESCE(SUM(l.units_available), 0) AS total
			FROM books b2
			LEFT JOIN lots l ON l.book_id = b2.id
			GROUP BY b2.id
		) AS lot_totals
		WHERE b.id = lot_totals.id AND b.stock <> lot_totals.total`

	result, err := p.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to reconcile book stock: %w", err)
	}

	if repaired := result.RowsAffected(); repaired > 0 {
		p.logger.WarnContext(ctx, "book stock drift repaired",
			slog.Int64("books_repaired", repaired))
	} else {
		p.logger.InfoContext(ctx, "book stock consistent")
	}

	return nil
}

// CleanupTempFiles removes stale uploaded files from the temp directory
func (p *MaintenanceProcessor) CleanupTempFiles(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up temp files")

	tempDir := p.config.FileProcessing.TempDir
	maxAge := 24 * time.Hour

	var deletedCount int
	err := filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				p.logger.WarnContext(ctx, "failed to delete temp file",
					slog.String("file", path),
					slog.String("error", err.Error()))
			} else {
				deletedCount++
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk temp directory: %w", err)
	}

	p.logger.InfoContext(ctx, "temp files cleaned up",
		slog.Int("files_deleted", deletedCount))

	return nil
}
