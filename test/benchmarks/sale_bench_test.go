package benchmarks

import (
	"context"
	"io"
	"testing"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/core/services"
	"github.com/ammerola/smartbook-be/internal/pkg/exports"
	"github.com/ammerola/smartbook-be/internal/pkg/receipt"
	"github.com/ammerola/smartbook-be/test/helpers"
)

func BenchmarkAllocator(b *testing.B) {
	allocator := services.NewAllocator(helpers.TestLogger())
	ctx := context.Background()

	b.Run("ExactLot", func(b *testing.B) {
		world := newBenchWorld(1, 1<<30)
		book := world.books[0]
		stores := world.mem.Stores()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _, _ = allocator.Allocate(ctx, stores, &book, "2026-1", 2)
		}
	})

	b.Run("AutoSelect", func(b *testing.B) {
		world := newBenchWorld(1, 1<<30)
		book := world.books[0]
		stores := world.mem.Stores()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _, _ = allocator.Allocate(ctx, stores, &book, "", 2)
		}
	})

	b.Run("InsufficientStock", func(b *testing.B) {
		world := newBenchWorld(1, 3)
		book := world.books[0]
		stores := world.mem.Stores()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _, err := allocator.Allocate(ctx, stores, &book, "", 100)
			if err == nil {
				b.Fatal("expected insufficient stock")
			}
		}
	})
}

func BenchmarkSaleCreate(b *testing.B) {
	ctx := context.Background()

	b.Run("SingleLine", func(b *testing.B) {
		world := newBenchWorld(1, 1<<30)
		svc := services.NewSaleService(world.mem, nil, helpers.TestLogger())

		params := ports.CreateSaleParams{
			CustomerID: world.customer.ID,
			UserID:     world.user.ID,
			Lines: []ports.SaleLineInput{
				{BookID: world.books[0].ID, Units: 1},
			},
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := svc.Create(ctx, params); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("FiveLines", func(b *testing.B) {
		world := newBenchWorld(5, 1<<30)
		svc := services.NewSaleService(world.mem, nil, helpers.TestLogger())

		lines := make([]ports.SaleLineInput, 0, len(world.books))
		for _, book := range world.books {
			lines = append(lines, ports.SaleLineInput{BookID: book.ID, Units: 1})
		}
		params := ports.CreateSaleParams{
			CustomerID: world.customer.ID,
			UserID:     world.user.ID,
			Lines:      lines,
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := svc.Create(ctx, params); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkReceiptRender(b *testing.B) {
	renderer := receipt.NewRenderer("Instituto Smartbook")
	sale := sampleSale()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := renderer.Render(sale); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSalesWorkbook(b *testing.B) {
	for _, size := range []struct {
		name string
		n    int
	}{
		{"100", 100},
		{"1000", 1000},
	} {
		b.Run(size.name, func(b *testing.B) {
			summaries := sampleSummaries(size.n)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := exports.WriteSalesWorkbook(io.Discard, summaries); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// Memory allocation benchmarks
func BenchmarkMemoryAllocation(b *testing.B) {
	b.Run("SaleLine", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = &domain.SaleLine{
				BookID:  1,
				LotCode: "2026-1",
				Units:   1,
			}
		}
	})

	b.Run("LotBreakdown", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = []domain.LotAvailability{
				{LotCode: "2025-2", UnitsAvailable: 3},
				{LotCode: "2026-1", UnitsAvailable: 10},
			}
		}
	})
}
