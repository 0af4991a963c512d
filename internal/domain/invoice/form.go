package invoice

import (
	_ "embed"
	"fmt"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
)

//go:embed form.yaml
var formYAML []byte

// Rules recompute every line total, then the invoice totals.
func Rules() []derive.Rule {
	return []derive.Rule{
		{
			Name:     "line-totals",
			Triggers: []string{"items"},
			Outputs:  []string{"items"},
			Compute: func(s form.Snapshot) map[string]any {
				rows, err := s.Rows("items")
				if err != nil {
					return nil
				}
				out, _ := derive.LineTotals(rows, "quantity", "unitPrice", "discountPercent", "lineTotal")
				return map[string]any{"items": out}
			},
		},
		{
			Name:     "invoice-totals",
			Triggers: []string{"items", "discountAmount", "taxRate"},
			Outputs:  []string{"subtotal", "taxAmount", "total"},
			Compute: func(s form.Snapshot) map[string]any {
				rows, _ := s.Rows("items")
				lines := make([]float64, len(rows))
				for i, r := range rows {
					lines[i] = form.CoerceNumber(r["lineTotal"])
				}
				t := derive.InvoiceTotals(lines, derive.Number(s, "discountAmount"), derive.Number(s, "taxRate"))
				return map[string]any{"subtotal": t.Subtotal, "taxAmount": t.TaxAmount, "total": t.Total}
			},
		},
	}
}

// Form returns the invoice form.
func Form() (*forms.Entry, error) {
	def, err := form.LoadDefinition(formYAML)
	if err != nil {
		return nil, fmt.Errorf("invoice form: %w", err)
	}
	engine, err := derive.NewEngine(Rules()...)
	if err != nil {
		return nil, fmt.Errorf("invoice form: %w", err)
	}
	return &forms.Entry{Definition: def, Derive: engine, Label: "Invoice"}, nil
}
