// internal/core/services/intake_service_test.go
package services_test

import (
	"context"
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

func intakeParams(bookID int64, units int) ports.CreateIntakeParams {
	return ports.CreateIntakeParams{
		BookID:       bookID,
		Units:        units,
		PurchaseCost: decimal.NewFromFloat(8.50),
		SalePrice:    decimal.NewFromFloat(15.00),
	}
}

func TestIntakeService_Create_FirstIntakeOfTheYear(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook())
	svc := services.NewIntakeService(mem, helpers.TestLogger())

	intake, err := svc.Create(context.Background(), intakeParams(book.ID, 12))
	require.NoError(t, err)

	assert.Equal(t, domain.PeriodLotCode(time.Now().Year(), 1), intake.LotCode)
	assert.Equal(t, book.Name, intake.BookName)
	assert.NotZero(t, intake.ID)

	lot, ok := mem.LotByCode(book.ID, intake.LotCode)
	require.True(t, ok, "intake must create the lot")
	assert.Equal(t, 12, lot.UnitsAvailable)
	assert.Equal(t, 0, lot.UnitsSold)
	assert.Equal(t, 12, mem.Book(book.ID).Stock)
}

func TestIntakeService_Create_PeriodSequenceAdvances(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook())
	svc := services.NewIntakeService(mem, helpers.TestLogger())
	year := time.Now().Year()

	first, err := svc.Create(context.Background(), intakeParams(book.ID, 5))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), intakeParams(book.ID, 5))
	require.NoError(t, err)
	third, err := svc.Create(context.Background(), intakeParams(book.ID, 5))
	require.NoError(t, err)

	assert.Equal(t, domain.PeriodLotCode(year, 1), first.LotCode)
	assert.Equal(t, domain.PeriodLotCode(year, 2), second.LotCode)
	assert.Equal(t, domain.PeriodLotCode(year+1, 1), third.LotCode,
		"both periods used, sequence rolls into next year")

	assert.Equal(t, 15, mem.Book(book.ID).Stock)
}

func TestIntakeService_Create_UsedPeriodTwoClosesTheYear(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook())
	svc := services.NewIntakeService(mem, helpers.TestLogger())
	year := time.Now().Year()

	// Period 2 already used while period 1 never was (hand-seeded data).
	mem.SeedIntake(*helpers.CreateTestIntake(book.ID, func(i *domain.Intake) {
		i.LotCode = domain.PeriodLotCode(year, 2)
	}))

	intake, err := svc.Create(context.Background(), intakeParams(book.ID, 5))
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodLotCode(year+1, 1), intake.LotCode,
		"a used period 2 advances the year even when period 1 is free")
}

func TestIntakeService_Create_TopsUpExistingLot(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) { b.Stock = 4 }))
	// A lot with the current period code already exists (a repaired or
	// seeded row) but no intake claimed the code yet.
	code := domain.PeriodLotCode(time.Now().Year(), 1)
	lot := mem.SeedLot(*helpers.CreateTestLot(book.ID, func(l *domain.Lot) {
		l.LotCode = code
		l.UnitsAvailable = 4
	}))
	svc := services.NewIntakeService(mem, helpers.TestLogger())

	intake, err := svc.Create(context.Background(), intakeParams(book.ID, 6))
	require.NoError(t, err)

	assert.Equal(t, code, intake.LotCode)
	assert.Equal(t, 10, mem.Lot(lot.ID).UnitsAvailable, "existing lot is topped up, not duplicated")
	assert.Equal(t, 10, mem.Book(book.ID).Stock)

	_, dup := mem.LotByCode(book.ID, code)
	assert.True(t, dup)
	assert.Len(t, mem.LotsOf(book.ID), 1)
}

func TestIntakeService_Create_Validation(t *testing.T) {
	tests := []struct {
		name          string
		params        ports.CreateIntakeParams
		errorContains string
	}{
		{
			name:          "rejects_zero_book_id",
			params:        intakeParams(0, 5),
			errorContains: "book_id must be greater than 0",
		},
		{
			name:          "rejects_zero_units",
			params:        intakeParams(1, 0),
			errorContains: "units must be greater than 0",
		},
		{
			name: "rejects_zero_purchase_cost",
			params: ports.CreateIntakeParams{
				BookID: 1, Units: 5,
				PurchaseCost: decimal.Zero,
				SalePrice:    decimal.NewFromFloat(15.00),
			},
			errorContains: "purchase_cost must be greater than 0",
		},
		{
			name: "rejects_negative_sale_price",
			params: ports.CreateIntakeParams{
				BookID: 1, Units: 5,
				PurchaseCost: decimal.NewFromFloat(8.50),
				SalePrice:    decimal.NewFromFloat(-1),
			},
			errorContains: "sale_price must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := helpers.NewMemStore()
			mem.SeedBook(*helpers.CreateTestBook())
			svc := services.NewIntakeService(mem, helpers.TestLogger())

			_, err := svc.Create(context.Background(), tt.params)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestIntakeService_Create_UnknownBook(t *testing.T) {
	mem := helpers.NewMemStore()
	svc := services.NewIntakeService(mem, helpers.TestLogger())

	_, err := svc.Create(context.Background(), intakeParams(777, 5))

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "book with id 777 not found")
}

func TestIntakeService_GetByID(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook())
	svc := services.NewIntakeService(mem, helpers.TestLogger())

	created, err := svc.Create(context.Background(), intakeParams(book.ID, 3))
	require.NoError(t, err)

	loaded, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.LotCode, loaded.LotCode)
	assert.Equal(t, 3, loaded.Units)

	_, err = svc.GetByID(context.Background(), 999999)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestIntakeService_Search(t *testing.T) {
	mem := helpers.NewMemStore()
	book := mem.SeedBook(*helpers.CreateTestBook())
	other := mem.SeedBook(*helpers.CreateTestBook(func(b *domain.Book) { b.Name = "Beyond B2" }))
	svc := services.NewIntakeService(mem, helpers.TestLogger())

	first, err := svc.Create(context.Background(), intakeParams(book.ID, 3))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), intakeParams(other.ID, 7))
	require.NoError(t, err)

	byBook, err := svc.Search(context.Background(), ports.IntakeSearchParams{BookID: book.ID})
	require.NoError(t, err)
	require.Len(t, byBook, 1)
	assert.Equal(t, first.ID, byBook[0].ID)

	byLot, err := svc.Search(context.Background(), ports.IntakeSearchParams{LotCode: first.LotCode})
	require.NoError(t, err)
	require.Len(t, byLot, 1)

	all, err := svc.Search(context.Background(), ports.IntakeSearchParams{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := svc.Search(context.Background(), ports.IntakeSearchParams{
		From: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}
