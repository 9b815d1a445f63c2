// internal/core/services/sale_service_test.go
package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/core/services"
	"github.com/ammerola/smartbook-be/test/helpers"
)

// fakeDispatcher records receipt dispatches and can be told to fail.
type fakeDispatcher struct {
	mu      sync.Mutex
	saleIDs []int64
	err     error
}

func (d *fakeDispatcher) DispatchReceipt(_ context.Context, saleID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saleIDs = append(d.saleIDs, saleID)
	return d.err
}

// saleFixture seeds a sellable world: one customer, one user, one book with
// a single priced lot of 10 units.
type saleFixture struct {
	mem      *helpers.MemStore
	svc      *services.SaleService
	disp     *fakeDispatcher
	book     domain.Book
	lot      domain.Lot
	customer domain.Customer
	user     domain.User
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()

	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) { b.Stock = 10 }))
	lot := mem.SeedLot(*helpers.CreateTestLot(book.ID, func(l *domain.Lot) {
		l.LotCode = "2026-1"
		l.UnitsAvailable = 10
	}))
	mem.SeedIntake(*helpers.CreateTestIntake(book.ID, func(i *domain.Intake) {
		i.LotCode = "2026-1"
		i.SalePrice = decimal.NewFromFloat(15.00)
	}))
	customer := mem.SeedCustomer(*helpers.CreateTestCustomer())
	user := mem.SeedUser(*helpers.CreateTestUser())

	disp := &fakeDispatcher{}
	return &saleFixture{
		mem:      mem,
		svc:      services.NewSaleService(mem, disp, helpers.TestLogger()),
		disp:     disp,
		book:     book,
		lot:      lot,
		customer: customer,
		user:     user,
	}
}

func (f *saleFixture) params(lines ...ports.SaleLineInput) ports.CreateSaleParams {
	return ports.CreateSaleParams{
		CustomerID:    f.customer.ID,
		UserID:        f.user.ID,
		ReceiptNumber: "R-0001",
		Lines:         lines,
	}
}

func TestSaleService_Create_SellsFromRequestedLot(t *testing.T) {
	f := newSaleFixture(t)

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, LotCode: "2026-1", Units: 3},
	))
	require.NoError(t, err)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, "2026-1", sale.Lines[0].LotCode)
	assert.True(t, sale.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(15.00)))
	assert.True(t, sale.Lines[0].Subtotal.Equal(decimal.NewFromFloat(45.00)))
	assert.True(t, sale.Total.Equal(decimal.NewFromFloat(45.00)))
	assert.Equal(t, f.customer.Name, sale.CustomerName)
	assert.Equal(t, f.user.Name, sale.UserName)

	lot := f.mem.Lot(f.lot.ID)
	assert.Equal(t, 7, lot.UnitsAvailable)
	assert.Equal(t, 3, lot.UnitsSold)
	assert.Equal(t, 7, f.mem.Book(f.book.ID).Stock)

	f.disp.mu.Lock()
	defer f.disp.mu.Unlock()
	assert.Equal(t, []int64{sale.ID}, f.disp.saleIDs)
}

func TestSaleService_Create_DerivesReceiptNumberWhenOmitted(t *testing.T) {
	f := newSaleFixture(t)

	params := f.params(ports.SaleLineInput{BookID: f.book.ID, LotCode: "2026-1", Units: 1})
	params.ReceiptNumber = "  "

	sale, err := f.svc.Create(context.Background(), params)
	require.NoError(t, err)

	want := fmt.Sprintf("V-%d-%06d", sale.Date.Year(), sale.ID)
	assert.Equal(t, want, sale.ReceiptNumber)

	stored, err := f.svc.GetByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.ReceiptNumber)
}

func TestSaleService_Create_AutoSelectsLotForPlaceholder(t *testing.T) {
	f := newSaleFixture(t)

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, LotCode: domain.LotCodePlaceholder, Units: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, "2026-1", sale.Lines[0].LotCode)
	assert.Equal(t, 8, f.mem.Lot(f.lot.ID).UnitsAvailable)
}

func TestSaleService_Create_MultiLineTotalsAndStock(t *testing.T) {
	f := newSaleFixture(t)

	other := f.mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) {
		b.Name = "Grammar in Use"
		b.Stock = 4
	}))
	otherLot := f.mem.SeedLot(*helpers.CreateTestLot(other.ID, func(l *domain.Lot) {
		l.LotCode = "2025-2"
		l.UnitsAvailable = 4
	}))
	f.mem.SeedIntake(*helpers.CreateTestIntake(other.ID, func(i *domain.Intake) {
		i.LotCode = "2025-2"
		i.SalePrice = decimal.NewFromFloat(22.00)
	}))

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 2},
		ports.SaleLineInput{BookID: other.ID, Units: 1},
	))
	require.NoError(t, err)

	require.Len(t, sale.Lines, 2)
	assert.True(t, sale.Total.Equal(decimal.NewFromFloat(52.00)), "total = %s", sale.Total)

	assert.Equal(t, 8, f.mem.Book(f.book.ID).Stock)
	assert.Equal(t, 3, f.mem.Book(other.ID).Stock)

	// Units are conserved per lot: available + sold stays constant.
	for _, lotID := range []int64{f.lot.ID, otherLot.ID} {
		lot := f.mem.Lot(lotID)
		assert.Equal(t, lot.UnitsAvailable+lot.UnitsSold,
			map[int64]int{f.lot.ID: 10, otherLot.ID: 4}[lotID])
	}
}

func TestSaleService_Create_SameBookTwiceAccumulatesDelta(t *testing.T) {
	f := newSaleFixture(t)

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 2},
		ports.SaleLineInput{BookID: f.book.ID, Units: 3},
	))
	require.NoError(t, err)

	assert.True(t, sale.Total.Equal(decimal.NewFromFloat(75.00)))
	assert.Equal(t, 5, f.mem.Lot(f.lot.ID).UnitsAvailable)
	assert.Equal(t, 5, f.mem.Lot(f.lot.ID).UnitsSold)
	assert.Equal(t, 5, f.mem.Book(f.book.ID).Stock)
}

func TestSaleService_Create_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 25},
	))

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, stockErr.Available)
	assert.Equal(t, 25, stockErr.Requested)

	assert.Equal(t, 0, f.mem.SaleCount())
	assert.Equal(t, 10, f.mem.Lot(f.lot.ID).UnitsAvailable)
	assert.Equal(t, 10, f.mem.Book(f.book.ID).Stock)
	f.disp.mu.Lock()
	defer f.disp.mu.Unlock()
	assert.Empty(t, f.disp.saleIDs, "no receipt for a failed sale")
}

func TestSaleService_Create_FragmentedStockFailsWholeSale(t *testing.T) {
	f := newSaleFixture(t)

	// Split the stock: 10 units total, largest lot holds 6.
	f.mem.SeedLot(*helpers.CreateTestLot(f.book.ID, func(l *domain.Lot) {
		l.LotCode = "2025-2"
		l.UnitsAvailable = 6
		l.CreatedAt = time.Now().Add(-24 * time.Hour)
	}))
	taken, err := f.mem.Stores().Lots.TakeUnits(context.Background(), f.lot.ID, 6)
	require.NoError(t, err)
	require.True(t, taken)
	// 2026-1 now holds 4, 2025-2 holds 6.

	_, err = f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 8},
	))

	// Fulfillment is single-lot: 10 units exist but no lot can cover 8.
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "2025-2", stockErr.LotCode)
	assert.Equal(t, 6, stockErr.Available)
	assert.Equal(t, 8, stockErr.Requested)
	assert.Equal(t, 0, f.mem.SaleCount())
}

func TestSaleService_Create_SecondLineFailureRollsBackFirst(t *testing.T) {
	f := newSaleFixture(t)

	// Second book has stock but no intake, so pricing its line fails
	// after the first line already decremented its lot.
	unpriced := f.mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) {
		b.Name = "Phonics Starter"
		b.Stock = 5
	}))
	f.mem.SeedLot(*helpers.CreateTestLot(unpriced.ID, func(l *domain.Lot) { l.UnitsAvailable = 5 }))

	_, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 4},
		ports.SaleLineInput{BookID: unpriced.ID, Units: 1},
	))

	var priceErr *domain.MissingPriceError
	require.ErrorAs(t, err, &priceErr)

	assert.Equal(t, 10, f.mem.Lot(f.lot.ID).UnitsAvailable, "first line's decrement must be rolled back")
	assert.Equal(t, 0, f.mem.Lot(f.lot.ID).UnitsSold)
	assert.Equal(t, 0, f.mem.SaleCount())
	assert.Equal(t, 0, f.mem.LineCount())
}

func TestSaleService_Create_MaterializesLotFromAggregateStock(t *testing.T) {
	f := newSaleFixture(t)

	orphan := f.mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) {
		b.Name = "Phrasal Verbs Plus"
		b.Stock = 6
	}))
	f.mem.SeedIntake(*helpers.CreateTestIntake(orphan.ID, func(i *domain.Intake) {
		i.LotCode = "2025-1"
		i.SalePrice = decimal.NewFromFloat(11.00)
	}))

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: orphan.ID, Units: 2},
	))
	require.NoError(t, err)

	assert.Equal(t, "2025-1", sale.Lines[0].LotCode)
	lot, ok := f.mem.LotByCode(orphan.ID, "2025-1")
	require.True(t, ok)
	assert.Equal(t, 4, lot.UnitsAvailable)
	assert.Equal(t, 2, lot.UnitsSold)
	assert.Equal(t, 4, f.mem.Book(orphan.ID).Stock)
}

func TestSaleService_Create_RepairsDrainedLotWithoutDuplicate(t *testing.T) {
	f := newSaleFixture(t)

	// The aggregate counter drifted positive while the book's only lot
	// row sits fully drained under the code the latest intake created.
	drifted := f.mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) {
		b.Name = "Grammar in Use"
		b.Stock = 5
	}))
	drained := f.mem.SeedLot(*helpers.CreateTestLot(drifted.ID, func(l *domain.Lot) {
		l.LotCode = "2025-1"
		l.UnitsAvailable = 0
		l.UnitsSold = 5
	}))
	f.mem.SeedIntake(*helpers.CreateTestIntake(drifted.ID, func(i *domain.Intake) {
		i.LotCode = "2025-1"
		i.SalePrice = decimal.NewFromFloat(12.00)
	}))

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: drifted.ID, Units: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, "2025-1", sale.Lines[0].LotCode)

	// The drained row was topped up and sold from, not shadowed by a
	// second row with the same code.
	require.Len(t, f.mem.LotsOf(drifted.ID), 1)
	lot := f.mem.Lot(drained.ID)
	assert.Equal(t, 3, lot.UnitsAvailable)
	assert.Equal(t, 7, lot.UnitsSold)
	assert.Equal(t, 3, f.mem.Book(drifted.ID).Stock)
}

func TestSaleService_Create_InputValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*saleFixture, *ports.CreateSaleParams)
		errorContains string
		wantNotFound  bool
	}{
		{
			name: "rejects_zero_customer_id",
			mutate: func(_ *saleFixture, p *ports.CreateSaleParams) {
				p.CustomerID = 0
			},
			errorContains: "customer_id must be greater than 0",
		},
		{
			name: "rejects_empty_lines",
			mutate: func(_ *saleFixture, p *ports.CreateSaleParams) {
				p.Lines = nil
			},
			errorContains: "at least one line",
		},
		{
			name: "rejects_zero_units",
			mutate: func(f *saleFixture, p *ports.CreateSaleParams) {
				p.Lines = []ports.SaleLineInput{{BookID: f.book.ID, Units: 0}}
			},
			errorContains: "units must be greater than 0",
		},
		{
			name: "rejects_unknown_book",
			mutate: func(_ *saleFixture, p *ports.CreateSaleParams) {
				p.Lines = []ports.SaleLineInput{{BookID: 9999, Units: 1}}
			},
			errorContains: "book with id 9999 not found",
			wantNotFound:  true,
		},
		{
			name: "rejects_unknown_user",
			mutate: func(_ *saleFixture, p *ports.CreateSaleParams) {
				p.UserID = 9999
			},
			errorContains: "user with id 9999 not found",
			wantNotFound:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSaleFixture(t)
			params := f.params(ports.SaleLineInput{BookID: f.book.ID, Units: 1})
			tt.mutate(f, &params)

			_, err := f.svc.Create(context.Background(), params)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.True(t, domain.IsBusinessError(err))
			if tt.wantNotFound {
				var nf *domain.NotFoundError
				assert.ErrorAs(t, err, &nf)
			}
			assert.Equal(t, 0, f.mem.SaleCount())
			assert.Equal(t, 10, f.mem.Lot(f.lot.ID).UnitsAvailable)
		})
	}
}

func TestSaleService_Create_UnknownCustomerListsExistingIDs(t *testing.T) {
	f := newSaleFixture(t)
	second := f.mem.SeedCustomer(*helpers.CreateTestCustomer(func(c *domain.Customer) {
		c.DocumentID = "40219876543"
		c.Name = "Juan Perez"
	}))

	params := f.params(ports.SaleLineInput{BookID: f.book.ID, Units: 1})
	params.CustomerID = 424242

	_, err := f.svc.Create(context.Background(), params)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "customer with id 424242 not found")
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", f.customer.ID))
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", second.ID))
}

func TestSaleService_Create_NoCustomersRegistered(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) { b.Stock = 5 }))
	user := mem.SeedUser(*helpers.CreateTestUser())
	svc := services.NewSaleService(mem, nil, helpers.TestLogger())

	_, err := svc.Create(context.Background(), ports.CreateSaleParams{
		CustomerID: 1,
		UserID:     user.ID,
		Lines:      []ports.SaleLineInput{{BookID: book.ID, Units: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "No customers are registered")
}

func TestSaleService_Create_ReceiptFailureDoesNotFailSale(t *testing.T) {
	f := newSaleFixture(t)
	f.disp.err = errors.New("smtp unreachable")

	sale, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 1},
	))

	require.NoError(t, err, "receipt dispatch runs after commit and must not fail the sale")
	assert.Equal(t, 1, f.mem.SaleCount())
	assert.Equal(t, 9, f.mem.Lot(f.lot.ID).UnitsAvailable)

	f.disp.mu.Lock()
	defer f.disp.mu.Unlock()
	assert.Equal(t, []int64{sale.ID}, f.disp.saleIDs)
}

func TestSaleService_Create_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newSaleFixture(t)
	// 10 units available, 20 buyers of 1 unit each.
	const attempts = 20

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.params(
				ports.SaleLineInput{BookID: f.book.ID, Units: 1},
			))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		var stockErr *domain.InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
	}

	assert.Equal(t, 10, succeeded, "exactly the available units sell")
	assert.Equal(t, attempts-10, failed)

	lot := f.mem.Lot(f.lot.ID)
	assert.Equal(t, 0, lot.UnitsAvailable)
	assert.Equal(t, 10, lot.UnitsSold)
	assert.Equal(t, 0, f.mem.Book(f.book.ID).Stock)
	assert.Equal(t, 10, f.mem.SaleCount())
}

func TestSaleService_GetByID(t *testing.T) {
	f := newSaleFixture(t)

	created, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 2},
	))
	require.NoError(t, err)

	loaded, err := f.svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, f.book.Name, loaded.Lines[0].BookName)
	assert.Equal(t, f.customer.DocumentID, loaded.CustomerDocumentID)

	_, err = f.svc.GetByID(context.Background(), 999999)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSaleService_Search(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.svc.Create(context.Background(), f.params(
		ports.SaleLineInput{BookID: f.book.ID, Units: 1},
	))
	require.NoError(t, err)

	summaries, err := f.svc.Search(context.Background(), ports.SaleSearchParams{
		CustomerDocumentID: f.customer.DocumentID,
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, f.customer.Name, summaries[0].CustomerName)

	none, err := f.svc.Search(context.Background(), ports.SaleSearchParams{
		CustomerDocumentID: "no-such-document",
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}
