// internal/core/domain/intake.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Intake is an immutable record of a stock-in event. The most recent intake
// for a (book, lot) pair is the authoritative source of the unit sale price;
// there is no separate price table.
type Intake struct {
	ID           int64           `json:"id"`
	BookID       int64           `json:"book_id"`
	LotCode      string          `json:"lot_code"`
	Units        int             `json:"units"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	ReceivedAt   time.Time       `json:"received_at"`
	CreatedAt    time.Time       `json:"created_at"`

	// BookName is resolved on read paths that join the catalog.
	BookName string `json:"book_name,omitempty"`
}

// Validate performs domain validation on an intake about to be recorded.
func (i *Intake) Validate() error {
	if i.BookID <= 0 {
		return NewValidationError("book_id must be greater than 0, got %d", i.BookID)
	}
	if i.Units <= 0 {
		return NewValidationError("units must be greater than 0")
	}
	if !i.PurchaseCost.IsPositive() {
		return NewValidationError("purchase_cost must be greater than 0")
	}
	if !i.SalePrice.IsPositive() {
		return NewValidationError("sale_price must be greater than 0")
	}
	return nil
}

// PeriodLotCode formats a period-based lot code such as "2026-1".
// Intake lots are numbered two periods per year.
func PeriodLotCode(year, period int) string {
	return fmt.Sprintf("%d-%d", year, period)
}
