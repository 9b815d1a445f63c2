// test/benchmarks/helpers.go
package benchmarks

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/test/helpers"
)

// benchWorld is a seeded in-memory store with a sellable catalog.
type benchWorld struct {
	mem      *helpers.MemStore
	books    []domain.Book
	customer domain.Customer
	user     domain.User
}

// newBenchWorld seeds numBooks books, each with one priced lot holding
// unitsPerLot available units.
func newBenchWorld(numBooks, unitsPerLot int) *benchWorld {
	mem := helpers.NewMemStore()

	books := make([]domain.Book, 0, numBooks)
	for i := 0; i < numBooks; i++ {
		book := mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) {
			b.Name = fmt.Sprintf("Benchmark Title %d", i)
			b.Stock = unitsPerLot
		}))
		mem.SeedLot(*helpers.CreateTestLot(book.ID, func(l *domain.Lot) {
			l.LotCode = "2026-1"
			l.UnitsAvailable = unitsPerLot
		}))
		mem.SeedIntake(*helpers.CreateTestIntake(book.ID, func(in *domain.Intake) {
			in.LotCode = "2026-1"
			in.SalePrice = decimal.NewFromFloat(1100.00)
		}))
		books = append(books, book)
	}

	return &benchWorld{
		mem:      mem,
		books:    books,
		customer: mem.SeedCustomer(*helpers.CreateTestCustomer()),
		user:     mem.SeedUser(*helpers.CreateTestUser()),
	}
}

// sampleSummaries builds n sale summaries for export benchmarks.
func sampleSummaries(n int) []domain.SaleSummary {
	summaries := make([]domain.SaleSummary, 0, n)
	for i := 0; i < n; i++ {
		summaries = append(summaries, domain.SaleSummary{
			ID:            int64(i + 1),
			ReceiptNumber: fmt.Sprintf("V-2026-%06d", i+1),
			Date:          time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
			CustomerID:    int64(i%50 + 1),
			CustomerName:  fmt.Sprintf("Customer %d", i%50+1),
			Total:         decimal.NewFromFloat(1100.00).Mul(decimal.NewFromInt(int64(i%3 + 1))),
		})
	}
	return summaries
}

// sampleSale builds a committed sale with a few lines for receipt
// rendering benchmarks.
func sampleSale() *domain.Sale {
	unit := decimal.NewFromFloat(1100.00)
	return &domain.Sale{
		ID:            42,
		ReceiptNumber: "V-2026-000042",
		Date:          time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC),
		CustomerID:    7,
		CustomerName:  "Maria Gonzalez",
		UserID:        3,
		UserName:      "Pedro Marte",
		Total:         unit.Mul(decimal.NewFromInt(3)),
		Lines: []domain.SaleLine{
			{BookID: 1, BookName: "English File Intermediate", LotCode: "2026-1", Units: 1, UnitPrice: unit, Subtotal: unit},
			{BookID: 2, BookName: "English File Intermediate Workbook", LotCode: "2026-1", Units: 2, UnitPrice: unit, Subtotal: unit.Mul(decimal.NewFromInt(2))},
		},
	}
}
