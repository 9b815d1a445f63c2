// internal/pkg/exports/sales_xlsx_test.go
package exports_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/pkg/exports"
)

func TestWriteSalesWorkbook(t *testing.T) {
	sales := []domain.SaleSummary{
		{
			ID:            1,
			ReceiptNumber: "V-2026-000001",
			Date:          time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			CustomerID:    7,
			CustomerName:  "Maria Gonzalez",
			Total:         decimal.RequireFromString("30.00"),
		},
		{
			ID:            2,
			ReceiptNumber: "V-2026-000002",
			Date:          time.Date(2026, 8, 2, 11, 0, 0, 0, time.UTC),
			CustomerID:    8,
			CustomerName:  "Juan Perez",
			Total:         decimal.RequireFromString("15.50"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, exports.WriteSalesWorkbook(&buf, sales))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Ventas", sheet.Name)

	cell := func(rowIdx, colIdx int) string {
		row, err := sheet.Row(rowIdx)
		require.NoError(t, err)
		return row.GetCell(colIdx).String()
	}

	assert.Equal(t, "Recibo", cell(0, 0))
	assert.Equal(t, "V-2026-000001", cell(1, 0))
	assert.Equal(t, "01/08/2026", cell(1, 1))
	assert.Equal(t, "Maria Gonzalez", cell(1, 3))
	assert.Equal(t, "V-2026-000002", cell(2, 0))

	// Closing row carries the grand total.
	assert.Equal(t, "TOTAL", cell(3, 0))

	totalRow, err := sheet.Row(3)
	require.NoError(t, err)
	grand, err := totalRow.GetCell(4).Float()
	require.NoError(t, err)
	assert.InDelta(t, 45.50, grand, 0.001)
}

func TestWriteSalesWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exports.WriteSalesWorkbook(&buf, nil))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	sheet := file.Sheets[0]
	row, err := sheet.Row(1)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", row.GetCell(0).String())
}
