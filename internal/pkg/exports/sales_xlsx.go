// internal/pkg/exports/sales_xlsx.go
package exports

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/smartbook-be/internal/core/domain"
)

var salesHeader = []string{
	"Recibo",
	"Fecha",
	"Cliente ID",
	"Cliente",
	"Total",
}

// WriteSalesWorkbook writes an XLSX workbook with one row per sale summary
// plus a closing total row.
func WriteSalesWorkbook(w io.Writer, sales []domain.SaleSummary) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Ventas")
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	header := sheet.AddRow()
	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	for _, title := range salesHeader {
		cell := header.AddCell()
		cell.SetString(title)
		cell.SetStyle(headerStyle)
	}

	total := decimal.Zero
	for _, sale := range sales {
		row := sheet.AddRow()
		row.AddCell().SetString(sale.ReceiptNumber)
		row.AddCell().SetString(sale.Date.Format("02/01/2006"))
		row.AddCell().SetInt64(sale.CustomerID)
		row.AddCell().SetString(sale.CustomerName)

		amount, _ := sale.Total.Float64()
		row.AddCell().SetFloatWithFormat(amount, "0.00")

		total = total.Add(sale.Total)
	}

	totalRow := sheet.AddRow()
	totalCell := totalRow.AddCell()
	totalCell.SetString("TOTAL")
	totalCell.SetStyle(headerStyle)
	totalRow.AddCell()
	totalRow.AddCell()
	totalRow.AddCell()

	amount, _ := total.Float64()
	grand := totalRow.AddCell()
	grand.SetFloatWithFormat(amount, "0.00")
	grand.SetStyle(headerStyle)

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}
