// internal/core/domain/lot.go
package domain

import (
	"fmt"
	"time"
)

// LotCodePlaceholder is the sentinel some clients submit when no lot was
// chosen (the Swagger UI default). A requested lot code equal to it is
// treated as unspecified.
const LotCodePlaceholder = "string"

// ReconciledLotSuffix marks lot codes synthesized when a book has aggregate
// stock but no lot rows and no intake history to recover a code from.
const ReconciledLotSuffix = "SINCRONIZADO"

// Lot is a dated batch of stock for a single book, tracked independently
// for availability and sold units. Lots are never deleted; units only move
// from UnitsAvailable to UnitsSold.
type Lot struct {
	ID             int64      `json:"id"`
	BookID         int64      `json:"book_id"`
	LotCode        string     `json:"lot_code"`
	UnitsAvailable int        `json:"units_available"`
	UnitsSold      int        `json:"units_sold"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`

	// Resolved on read paths that join the book record.
	BookName string `json:"book_name,omitempty"`
}

// ReconciledLotCode builds the synthetic lot code used on the data-repair
// path, e.g. "2026-SINCRONIZADO".
func ReconciledLotCode(year int) string {
	return fmt.Sprintf("%d-%s", year, ReconciledLotSuffix)
}

// LotAvailability is a single entry in the per-lot breakdown carried by
// InsufficientStockError.
type LotAvailability struct {
	LotCode        string `json:"lot_code"`
	UnitsAvailable int    `json:"units_available"`
}
