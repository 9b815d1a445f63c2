// internal/core/services/allocator.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// Allocator selects the lot a sale line is fulfilled from. It may create a
// lot row on the data-repair path (book has aggregate stock but no lot
// records), but it never mutates availability counters; that is the sale
// orchestrator's job once a lot and a price are resolved.
type Allocator struct {
	logger *slog.Logger
}

// NewAllocator creates an allocator.
func NewAllocator(logger *slog.Logger) *Allocator {
	return &Allocator{
		logger: logger.With(slog.String("component", "allocator")),
	}
}

// Allocate resolves a lot with stock for the requested units and the unit
// sale price for that lot. Fulfillment is single-lot only: when stock is
// fragmented across lots that only suffice together, the largest lot is
// returned as a best-effort candidate and the caller's sufficiency gate
// decides.
func (a *Allocator) Allocate(ctx context.Context, st ports.Stores, book *domain.Book, requestedLot string, units int) (*domain.Lot, decimal.Decimal, error) {
	var lot *domain.Lot

	// Step 1: exact lookup when the caller named a lot.
	if requestedLot != "" && requestedLot != domain.LotCodePlaceholder {
		found, err := st.Lots.FindByBookAndCode(ctx, book.ID, requestedLot)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to look up lot %s: %w", requestedLot, err)
		}
		lot = found
	}

	// Step 2: requested lot missing or short; take any lot with enough units.
	if lot == nil || lot.UnitsAvailable < units {
		found, err := st.Lots.FindSufficientLot(ctx, book.ID, units)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to find a sufficient lot: %w", err)
		}
		if found != nil {
			lot = found
			a.logger.InfoContext(ctx, "lot auto-selected",
				slog.Int64("book_id", book.ID),
				slog.String("lot_code", lot.LotCode))
		}
	}

	// Steps 3-5: fall back to the full lot list for the book.
	if lot == nil || lot.UnitsAvailable < units {
		available, err := st.Lots.FindAvailableByBook(ctx, book.ID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to list lots for book %d: %w", book.ID, err)
		}

		totalAvailable := 0
		for _, l := range available {
			totalAvailable += l.UnitsAvailable
		}

		switch {
		case len(available) == 0 && book.Stock > 0:
			// Data-repair: the aggregate counter says there is stock but
			// no lot holds any. Materialize the units under a lot code
			// recovered from the latest intake when possible.
			repaired, err := a.materializeLot(ctx, st, book)
			if err != nil {
				return nil, decimal.Zero, err
			}
			lot = repaired

		case totalAvailable < units:
			return nil, decimal.Zero, &domain.InsufficientStockError{
				BookName:  book.Name,
				Available: totalAvailable,
				Requested: units,
				Lots:      lotBreakdown(available),
			}

		default:
			lot = pickBestLot(available, units)
			if lot.UnitsAvailable < units {
				a.logger.WarnContext(ctx, "stock fragmented across lots, using largest lot",
					slog.Int64("book_id", book.ID),
					slog.String("lot_code", lot.LotCode),
					slog.Int("units_available", lot.UnitsAvailable),
					slog.Int("units_requested", units))
			}
		}
	}

	if lot == nil {
		return nil, decimal.Zero, &domain.InsufficientStockError{
			BookName:  book.Name,
			Requested: units,
		}
	}

	// Step 6: resolve the unit sale price from intake history.
	price, err := a.resolveUnitPrice(ctx, st, book, lot.LotCode)
	if err != nil {
		return nil, decimal.Zero, err
	}

	return lot, price, nil
}

// materializeLot puts the book's aggregate stock under a lot row. The
// recovered code may belong to an existing row that has been drained to
// zero; Save tops that row up instead of inserting a duplicate.
func (a *Allocator) materializeLot(ctx context.Context, st ports.Stores, book *domain.Book) (*domain.Lot, error) {
	a.logger.WarnContext(ctx, "book has aggregate stock but no lot records, materializing lot",
		slog.Int64("book_id", book.ID),
		slog.String("book_name", book.Name),
		slog.Int("stock", book.Stock))

	latest, err := st.Intakes.LatestByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up latest intake for book %d: %w", book.ID, err)
	}

	lotCode := domain.ReconciledLotCode(time.Now().Year())
	if latest != nil {
		lotCode = latest.LotCode
	}

	lot := &domain.Lot{
		BookID:         book.ID,
		LotCode:        lotCode,
		UnitsAvailable: book.Stock,
		UnitsSold:      0,
	}
	if err := st.Lots.Save(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to materialize lot for book %d: %w", book.ID, err)
	}

	a.logger.InfoContext(ctx, "lot materialized from aggregate stock",
		slog.Int64("book_id", book.ID),
		slog.String("lot_code", lotCode),
		slog.Int("units", book.Stock))

	return lot, nil
}

// resolveUnitPrice finds the sale price from the most recent intake for the
// (book, lot) pair, falling back to the book's most recent intake on any lot.
func (a *Allocator) resolveUnitPrice(ctx context.Context, st ports.Stores, book *domain.Book, lotCode string) (decimal.Decimal, error) {
	intake, err := st.Intakes.LatestByBookAndLot(ctx, book.ID, lotCode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to look up intake for book %d lot %s: %w", book.ID, lotCode, err)
	}
	if intake == nil {
		intake, err = st.Intakes.LatestByBook(ctx, book.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to look up intake for book %d: %w", book.ID, err)
		}
	}
	if intake == nil {
		return decimal.Zero, &domain.MissingPriceError{BookName: book.Name}
	}
	return intake.SalePrice, nil
}

// pickBestLot prefers the lot with the most available units among those
// that can satisfy the request on their own; with none sufficient it
// returns the largest lot as a best-effort candidate.
func pickBestLot(lots []domain.Lot, units int) *domain.Lot {
	var best *domain.Lot
	var largest *domain.Lot
	for i := range lots {
		l := &lots[i]
		if largest == nil || l.UnitsAvailable > largest.UnitsAvailable {
			largest = l
		}
		if l.UnitsAvailable >= units && (best == nil || l.UnitsAvailable > best.UnitsAvailable) {
			best = l
		}
	}
	if best != nil {
		return best
	}
	return largest
}

func lotBreakdown(lots []domain.Lot) []domain.LotAvailability {
	breakdown := make([]domain.LotAvailability, 0, len(lots))
	for _, l := range lots {
		breakdown = append(breakdown, domain.LotAvailability{
			LotCode:        l.LotCode,
			UnitsAvailable: l.UnitsAvailable,
		})
	}
	return breakdown
}
