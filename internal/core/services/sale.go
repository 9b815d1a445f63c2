// internal/core/services/sale.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// SaleService orchestrates sale transactions: validation, per-line lot
// allocation, inventory decrement, header/line persistence and aggregate
// stock reconciliation, all inside one transaction.
type SaleService struct {
	runner     ports.TxRunner
	alloc      *Allocator
	dispatcher ports.ReceiptDispatcher
	logger     *slog.Logger
}

// Statically assert that *SaleService implements the SaleService port.
var _ ports.SaleService = (*SaleService)(nil)

// NewSaleService creates a sale service. dispatcher may be nil, in which
// case no receipt is sent after commit.
func NewSaleService(runner ports.TxRunner, dispatcher ports.ReceiptDispatcher, logger *slog.Logger) *SaleService {
	return &SaleService{
		runner:     runner,
		alloc:      NewAllocator(logger),
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("service", "sale")),
	}
}

// Create executes a sale. Every write happens inside one transaction: any
// failure rolls back all lot, book, header and line mutations. The receipt
// dispatch runs after commit and its failure never undoes the sale.
func (s *SaleService) Create(ctx context.Context, params ports.CreateSaleParams) (*domain.Sale, error) {
	if params.CustomerID <= 0 {
		return nil, domain.NewValidationError("customer_id must be greater than 0")
	}

	var sale *domain.Sale
	err := s.runner.InTx(ctx, func(ctx context.Context, st ports.Stores) error {
		created, err := s.createInTx(ctx, st, params)
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale created",
		slog.Int64("sale_id", sale.ID),
		slog.Int64("customer_id", sale.CustomerID),
		slog.String("receipt_number", sale.ReceiptNumber),
		slog.String("total", sale.Total.String()))

	// Post-commit, best-effort: a receipt failure must never fail the
	// already-committed sale.
	if s.dispatcher != nil {
		if err := s.dispatcher.DispatchReceipt(ctx, sale.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to dispatch sale receipt",
				slog.Int64("sale_id", sale.ID),
				slog.String("error", err.Error()))
		}
	}

	return sale, nil
}

func (s *SaleService) createInTx(ctx context.Context, st ports.Stores, params ports.CreateSaleParams) (*domain.Sale, error) {
	customer, err := s.resolveCustomer(ctx, st, params.CustomerID)
	if err != nil {
		return nil, err
	}

	user, err := st.Users.FindByID(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %d: %w", params.UserID, err)
	}
	if user == nil {
		return nil, &domain.NotFoundError{Entity: "user", Msg: fmt.Sprintf("user with id %d not found", params.UserID)}
	}

	if len(params.Lines) == 0 {
		return nil, domain.NewValidationError("a sale must have at least one line")
	}
	for _, line := range params.Lines {
		if line.BookID <= 0 {
			return nil, domain.NewValidationError("book_id must be greater than 0, got %d", line.BookID)
		}
		if line.Units <= 0 {
			return nil, domain.NewValidationError("units must be greater than 0")
		}
	}

	sale := &domain.Sale{
		ReceiptNumber: strings.TrimSpace(params.ReceiptNumber),
		Date:          time.Now().UTC(),
		CustomerID:    params.CustomerID,
		UserID:        params.UserID,
		Notes:         strings.TrimSpace(params.Notes),
		Total:         decimal.Zero,
	}

	var (
		lines      []domain.SaleLine
		total      = decimal.Zero
		stockDelta = make(map[int64]int)  // book id -> units sold in this sale
		stockSeen  = make(map[int64]int)  // book id -> stock at first read
		bookNames  = make(map[int64]string)
	)

	for _, line := range params.Lines {
		book, err := st.Books.FindByID(ctx, line.BookID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up book %d: %w", line.BookID, err)
		}
		if book == nil {
			return nil, &domain.NotFoundError{Entity: "book", Msg: fmt.Sprintf("book with id %d not found", line.BookID)}
		}
		if _, ok := stockSeen[book.ID]; !ok {
			stockSeen[book.ID] = book.Stock
			bookNames[book.ID] = book.Name
		}

		lot, unitPrice, err := s.alloc.Allocate(ctx, st, book, line.LotCode, line.Units)
		if err != nil {
			return nil, err
		}

		// Authoritative sufficiency gate, independent of the allocator's
		// best-effort selection.
		if lot.UnitsAvailable < line.Units {
			return nil, &domain.InsufficientStockError{
				BookName:  book.Name,
				LotCode:   lot.LotCode,
				Available: lot.UnitsAvailable,
				Requested: line.Units,
			}
		}

		// Conditional decrement: a concurrent sale draining the lot
		// between the read and this update surfaces here as zero rows
		// affected, failing the whole sale.
		taken, err := st.Lots.TakeUnits(ctx, lot.ID, line.Units)
		if err != nil {
			return nil, fmt.Errorf("failed to take %d units from lot %s: %w", line.Units, lot.LotCode, err)
		}
		if !taken {
			return nil, s.insufficientAfterRace(ctx, st, book, line.Units)
		}

		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Units)))
		total = total.Add(subtotal)

		lines = append(lines, domain.SaleLine{
			BookID:    line.BookID,
			LotCode:   lot.LotCode,
			Units:     line.Units,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
			BookName:  book.Name,
		})

		stockDelta[book.ID] += line.Units
	}

	sale.Total = total

	if err := st.Sales.SaveHeader(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to save sale header: %w", err)
	}
	if sale.ReceiptNumber == "" {
		// The fallback number embeds the generated id, so it can only be
		// assigned after the header insert.
		sale.ReceiptNumber = domain.DerivedReceiptNumber(sale.Date.Year(), sale.ID)
		if err := st.Sales.UpdateReceiptNumber(ctx, sale.ID, sale.ReceiptNumber); err != nil {
			return nil, fmt.Errorf("failed to assign receipt number: %w", err)
		}
	}
	if err := st.Sales.SaveLines(ctx, sale.ID, lines); err != nil {
		return nil, fmt.Errorf("failed to save sale lines: %w", err)
	}

	// Flush the accumulated per-book deltas once, then reconcile each
	// touched book against the true sum of its lots.
	for _, bookID := range sortedKeys(stockDelta) {
		expected := stockSeen[bookID] - stockDelta[bookID]
		if err := st.Books.UpdateStock(ctx, bookID, expected); err != nil {
			return nil, fmt.Errorf("failed to update stock for book %d: %w", bookID, err)
		}
		if err := reconcileBookStock(ctx, st, bookID, expected, s.logger); err != nil {
			return nil, err
		}
	}

	for i := range lines {
		lines[i].SaleID = sale.ID
	}
	sale.Lines = lines
	sale.CustomerName = customer.Name
	sale.CustomerDocumentID = customer.DocumentID
	sale.UserName = user.Name

	return sale, nil
}

// resolveCustomer loads the customer or fails with a message listing the
// ids that do exist, so operators can spot a typo without a second query.
func (s *SaleService) resolveCustomer(ctx context.Context, st ports.Stores, customerID int64) (*domain.Customer, error) {
	customer, err := st.Customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer %d: %w", customerID, err)
	}
	if customer != nil {
		return customer, nil
	}

	ids, err := st.Customers.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer ids: %w", err)
	}

	msg := fmt.Sprintf("customer with id %d not found.", customerID)
	if len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%d", id)
		}
		msg += " Available customer ids: " + strings.Join(parts, ", ")
	} else {
		msg += " No customers are registered; create a customer first"
	}
	return nil, &domain.NotFoundError{Entity: "customer", Msg: msg}
}

// insufficientAfterRace rebuilds the diagnostic breakdown after a
// conditional lot update affected zero rows.
func (s *SaleService) insufficientAfterRace(ctx context.Context, st ports.Stores, book *domain.Book, units int) error {
	available, err := st.Lots.FindAvailableByBook(ctx, book.ID)
	if err != nil {
		return fmt.Errorf("failed to list lots for book %d: %w", book.ID, err)
	}
	total := 0
	for _, l := range available {
		total += l.UnitsAvailable
	}
	s.logger.WarnContext(ctx, "conditional lot update lost a concurrent race",
		slog.Int64("book_id", book.ID),
		slog.Int("units_requested", units),
		slog.Int("total_available", total))
	return &domain.InsufficientStockError{
		BookName:  book.Name,
		Available: total,
		Requested: units,
		Lots:      lotBreakdown(available),
	}
}

// GetByID loads a sale aggregate with lines and resolved names.
func (s *SaleService) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := s.runner.Stores().Sales.FindWithLines(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %d: %w", id, err)
	}
	if sale == nil {
		return nil, &domain.NotFoundError{Entity: "sale", Msg: fmt.Sprintf("sale with id %d not found", id)}
	}
	return sale, nil
}

// Search returns sale summaries matching the filters.
func (s *SaleService) Search(ctx context.Context, params ports.SaleSearchParams) ([]domain.SaleSummary, error) {
	summaries, err := s.runner.Stores().Sales.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search sales: %w", err)
	}
	return summaries, nil
}

func sortedKeys(m map[int64]int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
