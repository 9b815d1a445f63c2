// internal/core/services/reconcile.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// reconcileBookStock overwrites a book's denormalized stock counter with
// the sum of its lots' available units whenever the two disagree. The sum
// is the ground truth; the counter is only a cache of it.
func reconcileBookStock(ctx context.Context, st ports.Stores, bookID int64, expected int, logger *slog.Logger) error {
	real, err := st.Lots.SumAvailableByBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to sum lot availability for book %d: %w", bookID, err)
	}
	if real == expected {
		return nil
	}

	logger.InfoContext(ctx, "reconciling book stock",
		slog.Int64("book_id", bookID),
		slog.Int("stock_recorded", expected),
		slog.Int("stock_actual", real))

	if err := st.Books.UpdateStock(ctx, bookID, real); err != nil {
		return fmt.Errorf("failed to reconcile stock for book %d: %w", bookID, err)
	}
	return nil
}
