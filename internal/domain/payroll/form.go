package payroll

import (
	_ "embed"
	"fmt"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
)

//go:embed form.yaml
var formYAML []byte

var payInputs = []string{"baseSalary", "allowances", "overtimeHours", "overtimeRate", "taxPercent", "otherDeductions"}

// Rules derive gross pay from earnings and net pay from gross pay less
// deductions.
func Rules() []derive.Rule {
	return []derive.Rule{
		{
			Name:     "gross-pay",
			Triggers: payInputs[:4],
			Outputs:  []string{"grossPay"},
			Compute: func(s form.Snapshot) map[string]any {
				gross := derive.Payroll(
					derive.Number(s, "baseSalary"),
					derive.Number(s, "allowances"),
					derive.Number(s, "overtimeHours"),
					derive.Number(s, "overtimeRate"),
					0, 0,
				).Gross
				return map[string]any{"grossPay": gross}
			},
		},
		{
			Name:     "net-pay",
			Triggers: append([]string{"grossPay"}, payInputs[4:]...),
			Outputs:  []string{"netPay"},
			Compute: func(s form.Snapshot) map[string]any {
				gross := derive.Number(s, "grossPay")
				tax := gross * form.ClampPercent(derive.Number(s, "taxPercent")) / 100
				net := gross - tax - derive.Number(s, "otherDeductions")
				if net < 0 {
					net = 0
				}
				return map[string]any{"netPay": net}
			},
		},
	}
}

// Form returns the payroll form.
func Form() (*forms.Entry, error) {
	def, err := form.LoadDefinition(formYAML)
	if err != nil {
		return nil, fmt.Errorf("payroll form: %w", err)
	}
	engine, err := derive.NewEngine(Rules()...)
	if err != nil {
		return nil, fmt.Errorf("payroll form: %w", err)
	}
	return &forms.Entry{Definition: def, Derive: engine, Label: "Payroll entry"}, nil
}
