// internal/core/ports/intake_service.go
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ammerola/smartbook-be/internal/core/domain"
)

// CreateIntakeParams is the input of a stock-in event. The lot code is
// assigned by the service from the current year's period sequence.
type CreateIntakeParams struct {
	BookID       int64           `json:"book_id"`
	Units        int             `json:"units"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	SalePrice    decimal.Decimal `json:"sale_price"`
}

// IntakeService is the application service port for stock intake.
type IntakeService interface {
	Create(ctx context.Context, params CreateIntakeParams) (*domain.Intake, error)
	GetByID(ctx context.Context, id int64) (*domain.Intake, error)
	Search(ctx context.Context, params IntakeSearchParams) ([]domain.Intake, error)
}
