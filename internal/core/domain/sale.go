// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DerivedReceiptNumber builds the fallback receipt number assigned when a
// sale is created without one, e.g. "V-2026-000042".
func DerivedReceiptNumber(year int, saleID int64) string {
	return fmt.Sprintf("V-%d-%06d", year, saleID)
}

// Sale is a point-of-sale transaction header. Sales are append-only: there
// is no update or delete path once a sale has been committed.
type Sale struct {
	ID            int64           `json:"id"`
	ReceiptNumber string          `json:"receipt_number"`
	Date          time.Time       `json:"date"`
	CustomerID    int64           `json:"customer_id"`
	UserID        int64           `json:"user_id"`
	Notes         string          `json:"notes,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Lines         []SaleLine      `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`

	// Resolved on read paths that join customer/user records.
	CustomerName       string `json:"customer_name,omitempty"`
	CustomerDocumentID string `json:"customer_document_id,omitempty"`
	UserName           string `json:"user_name,omitempty"`
}

// SaleLine is a single line of a sale: the book, the lot the units were
// actually taken from, and the price captured from the intake record at
// sale time. Immutable once created.
type SaleLine struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	BookID    int64           `json:"book_id"`
	LotCode   string          `json:"lot_code"`
	Units     int             `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`

	BookName string `json:"book_name,omitempty"`
}

// SaleSummary is the compact projection returned by sale searches.
type SaleSummary struct {
	ID            int64           `json:"id"`
	ReceiptNumber string          `json:"receipt_number"`
	Date          time.Time       `json:"date"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Total         decimal.Decimal `json:"total"`
}
