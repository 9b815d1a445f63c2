// internal/core/services/intake.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// IntakeService records stock-in events: the intake row, the (book, lot)
// inventory top-up and the book's aggregate counter, in one transaction.
type IntakeService struct {
	runner ports.TxRunner
	logger *slog.Logger
}

// Statically assert that *IntakeService implements the IntakeService port.
var _ ports.IntakeService = (*IntakeService)(nil)

// NewIntakeService creates an intake service.
func NewIntakeService(runner ports.TxRunner, logger *slog.Logger) *IntakeService {
	return &IntakeService{
		runner: runner,
		logger: logger.With(slog.String("service", "intake")),
	}
}

// Create records an intake. The lot code is assigned from the current
// year's period sequence; an existing (book, lot) inventory row is topped
// up, otherwise one is created.
func (s *IntakeService) Create(ctx context.Context, params ports.CreateIntakeParams) (*domain.Intake, error) {
	intake := &domain.Intake{
		BookID:       params.BookID,
		Units:        params.Units,
		PurchaseCost: params.PurchaseCost,
		SalePrice:    params.SalePrice,
		ReceivedAt:   time.Now().UTC(),
	}
	if err := intake.Validate(); err != nil {
		return nil, err
	}

	err := s.runner.InTx(ctx, func(ctx context.Context, st ports.Stores) error {
		book, err := st.Books.FindByID(ctx, params.BookID)
		if err != nil {
			return fmt.Errorf("failed to look up book %d: %w", params.BookID, err)
		}
		if book == nil {
			return &domain.NotFoundError{Entity: "book", Msg: fmt.Sprintf("book with id %d not found", params.BookID)}
		}

		lotCode, err := st.Intakes.NextLotCode(ctx, time.Now().Year())
		if err != nil {
			return fmt.Errorf("failed to assign lot code: %w", err)
		}
		intake.LotCode = lotCode
		intake.BookName = book.Name

		if err := st.Intakes.Save(ctx, intake); err != nil {
			return fmt.Errorf("failed to save intake: %w", err)
		}

		lot, err := st.Lots.FindByBookAndCode(ctx, params.BookID, lotCode)
		if err != nil {
			return fmt.Errorf("failed to look up lot %s: %w", lotCode, err)
		}
		if lot == nil {
			lot = &domain.Lot{
				BookID:         params.BookID,
				LotCode:        lotCode,
				UnitsAvailable: params.Units,
				UnitsSold:      0,
			}
			if err := st.Lots.Save(ctx, lot); err != nil {
				return fmt.Errorf("failed to create lot %s: %w", lotCode, err)
			}
		} else {
			if err := st.Lots.AddUnits(ctx, lot.ID, params.Units); err != nil {
				return fmt.Errorf("failed to top up lot %s: %w", lotCode, err)
			}
		}

		if err := st.Books.UpdateStock(ctx, book.ID, book.Stock+params.Units); err != nil {
			return fmt.Errorf("failed to update stock for book %d: %w", book.ID, err)
		}

		return reconcileBookStock(ctx, st, book.ID, book.Stock+params.Units, s.logger)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "intake recorded",
		slog.Int64("intake_id", intake.ID),
		slog.Int64("book_id", intake.BookID),
		slog.String("lot_code", intake.LotCode),
		slog.Int("units", intake.Units))

	return intake, nil
}

// GetByID loads one intake with its book name resolved.
func (s *IntakeService) GetByID(ctx context.Context, id int64) (*domain.Intake, error) {
	intake, err := s.runner.Stores().Intakes.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load intake %d: %w", id, err)
	}
	if intake == nil {
		return nil, &domain.NotFoundError{Entity: "intake", Msg: fmt.Sprintf("intake with id %d not found", id)}
	}
	return intake, nil
}

// Search returns intakes matching the filters, newest first.
func (s *IntakeService) Search(ctx context.Context, params ports.IntakeSearchParams) ([]domain.Intake, error) {
	intakes, err := s.runner.Stores().Intakes.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search intakes: %w", err)
	}
	return intakes, nil
}
