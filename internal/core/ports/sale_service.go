// internal/core/ports/sale_service.go
package ports

import (
	"context"

	"github.com/ammerola/smartbook-be/internal/core/domain"
)

// SaleLineInput is one requested line of a sale. LotCode is optional; when
// empty (or the client placeholder) the allocator selects a lot.
type SaleLineInput struct {
	BookID  int64  `json:"book_id"`
	LotCode string `json:"lot_code,omitempty"`
	Units   int    `json:"units"`
}

// CreateSaleParams is the full input of a sale transaction.
type CreateSaleParams struct {
	CustomerID    int64           `json:"customer_id"`
	UserID        int64           `json:"user_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []SaleLineInput `json:"lines"`
}

// SaleService is the application service port for the sale workflow.
type SaleService interface {
	// Create executes the whole sale inside one transaction and, after
	// commit, dispatches the receipt best-effort.
	Create(ctx context.Context, params CreateSaleParams) (*domain.Sale, error)
	GetByID(ctx context.Context, id int64) (*domain.Sale, error)
	Search(ctx context.Context, params SaleSearchParams) ([]domain.SaleSummary, error)
}

// ReceiptDispatcher triggers post-commit receipt delivery for a committed
// sale. Implementations must be safe to call outside any transaction;
// failures are the caller's to log and swallow.
type ReceiptDispatcher interface {
	DispatchReceipt(ctx context.Context, saleID int64) error
}
