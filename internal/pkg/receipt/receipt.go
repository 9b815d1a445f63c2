// internal/pkg/receipt/receipt.go
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ammerola/smartbook-be/internal/core/domain"
)

// receiptWidth is the character width of the plain-text receipt, sized
// for 80mm thermal printers.
const receiptWidth = 42

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"pad":    pad,
	"center": center,
	"rule":   rule,
}).Parse(`{{center .Institute}}
{{center "COMPROBANTE DE VENTA"}}
{{rule}}
Recibo:  {{.Sale.ReceiptNumber}}
Fecha:   {{.Date}}
Cliente: {{.Sale.CustomerName}}{{if .Sale.CustomerDocumentID}} ({{.Sale.CustomerDocumentID}}){{end}}
Vendedor: {{.Sale.UserName}}
{{rule}}
{{range .Lines}}{{.Name}}
{{pad .Detail .Amount}}
{{end}}{{rule}}
{{pad "TOTAL" .Total}}
{{rule}}
{{if .Sale.Notes}}Nota: {{.Sale.Notes}}
{{end}}{{center "Gracias por su compra"}}
`))

// Renderer turns a committed sale into a printable plain-text receipt.
type Renderer struct {
	institute string
}

// NewRenderer creates a renderer. instituteName heads every receipt.
func NewRenderer(instituteName string) *Renderer {
	if instituteName == "" {
		instituteName = "Smartbook"
	}
	return &Renderer{institute: instituteName}
}

type lineView struct {
	Name   string
	Detail string
	Amount string
}

type receiptView struct {
	Institute string
	Sale      *domain.Sale
	Date      string
	Lines     []lineView
	Total     string
}

// Render produces the receipt text for a fully loaded sale aggregate.
// The sale must carry its lines and resolved customer and user names.
func (r *Renderer) Render(sale *domain.Sale) ([]byte, error) {
	if sale == nil {
		return nil, fmt.Errorf("receipt: sale is nil")
	}
	if len(sale.Lines) == 0 {
		return nil, fmt.Errorf("receipt: sale %d has no lines", sale.ID)
	}

	view := receiptView{
		Institute: r.institute,
		Sale:      sale,
		Date:      sale.Date.Format("02/01/2006 15:04"),
		Total:     "$" + sale.Total.StringFixed(2),
	}

	for _, l := range sale.Lines {
		view.Lines = append(view.Lines, lineView{
			Name:   l.BookName,
			Detail: fmt.Sprintf("  %d x $%s (lote %s)", l.Units, l.UnitPrice.StringFixed(2), l.LotCode),
			Amount: "$" + l.Subtotal.StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("receipt: render sale %d: %w", sale.ID, err)
	}

	return buf.Bytes(), nil
}

func pad(left, right string) string {
	gap := receiptWidth - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	return strings.Repeat(" ", (receiptWidth-len(s))/2) + s
}

func rule() string {
	return strings.Repeat("-", receiptWidth)
}
