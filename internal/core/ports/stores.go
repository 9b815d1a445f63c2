// internal/core/ports/stores.go
package ports

import (
	"context"
	"time"

	"github.com/ammerola/smartbook-be/internal/core/domain"
)

// BookStore is the persistence port for the book catalog as seen by the
// sale and intake workflows. Find methods return (nil, nil) when the
// record does not exist.
type BookStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Book, error)
	UpdateStock(ctx context.Context, id int64, stock int) error
}

// LotStore is the persistence port for per-lot inventory rows.
type LotStore interface {
	// FindByBookAndCode looks up the exact (book, lot code) pair.
	FindByBookAndCode(ctx context.Context, bookID int64, lotCode string) (*domain.Lot, error)
	// FindSufficientLot returns the newest lot of the book holding at
	// least units available units, or (nil, nil).
	FindSufficientLot(ctx context.Context, bookID int64, units int) (*domain.Lot, error)
	// FindAvailableByBook returns the book's lots with units available,
	// newest first.
	FindAvailableByBook(ctx context.Context, bookID int64) ([]domain.Lot, error)
	// FindByCode returns every book's lot carrying the code, with book
	// names resolved.
	FindByCode(ctx context.Context, lotCode string) ([]domain.Lot, error)
	// SumAvailableByBook returns the true aggregate stock of the book.
	SumAvailableByBook(ctx context.Context, bookID int64) (int, error)
	// Save inserts the (book, lot code) row, or adds the lot's available
	// units to an existing row with the same pair. On return the lot
	// carries the stored row's id and counters.
	Save(ctx context.Context, lot *domain.Lot) error
	// AddUnits increases a lot's available units (intake top-up).
	AddUnits(ctx context.Context, lotID int64, units int) error
	// TakeUnits moves units from available to sold in one conditional
	// update. It reports false, without error, when the lot no longer
	// holds enough units; the caller must treat that as insufficient
	// stock and abort the enclosing transaction.
	TakeUnits(ctx context.Context, lotID int64, units int) (bool, error)
}

// IntakeSearchParams filters intake searches. Zero values mean "no filter".
type IntakeSearchParams struct {
	From    time.Time
	To      time.Time
	LotCode string
	BookID  int64
}

// IntakeStore is the persistence port for intake records.
type IntakeStore interface {
	Save(ctx context.Context, intake *domain.Intake) error
	FindByID(ctx context.Context, id int64) (*domain.Intake, error)
	// LatestByBookAndLot returns the most recent intake for the pair,
	// or (nil, nil).
	LatestByBookAndLot(ctx context.Context, bookID int64, lotCode string) (*domain.Intake, error)
	// LatestByBook returns the most recent intake for the book across
	// all lots, or (nil, nil).
	LatestByBook(ctx context.Context, bookID int64) (*domain.Intake, error)
	Search(ctx context.Context, params IntakeSearchParams) ([]domain.Intake, error)
	// NextLotCode returns the next free period lot code for the year
	// ("2026-1", then "2026-2", then "2027-1").
	NextLotCode(ctx context.Context, year int) (string, error)
}

// SaleSearchParams filters sale searches. Zero values mean "no filter".
type SaleSearchParams struct {
	From               time.Time
	To                 time.Time
	CustomerDocumentID string
	BookID             int64
}

// SaleStore is the persistence port for sales. Header and lines are
// inserted in two phases because line rows need the generated sale id.
type SaleStore interface {
	// SaveHeader inserts the sale header and sets sale.ID.
	SaveHeader(ctx context.Context, sale *domain.Sale) error
	SaveLines(ctx context.Context, saleID int64, lines []domain.SaleLine) error
	// UpdateReceiptNumber sets the receipt number of an already inserted
	// header, used when the caller left it for the system to derive.
	UpdateReceiptNumber(ctx context.Context, saleID int64, receiptNumber string) error
	// FindWithLines loads the full aggregate with customer, user and
	// book names resolved, or (nil, nil).
	FindWithLines(ctx context.Context, id int64) (*domain.Sale, error)
	Search(ctx context.Context, params SaleSearchParams) ([]domain.SaleSummary, error)
}

// CustomerStore is the read-side port for customer lookups.
type CustomerStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Customer, error)
	// ListIDs returns all customer ids, used to build the suggestion in
	// the customer-not-found message.
	ListIDs(ctx context.Context) ([]int64, error)
}

// UserStore is the read-side port for staff user lookups.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// Stores bundles the per-aggregate stores bound to a single execution
// scope: either the shared pool or one open transaction.
type Stores struct {
	Books     BookStore
	Lots      LotStore
	Intakes   IntakeStore
	Sales     SaleStore
	Customers CustomerStore
	Users     UserStore
}

// TxRunner provides store access and transaction execution. Everything the
// callback does through st happens inside one transaction: the callback
// returning an error rolls every write back.
type TxRunner interface {
	// Stores returns pool-backed stores for non-transactional reads.
	Stores() Stores
	// InTx runs fn inside a single transaction with tx-bound stores.
	InTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}
