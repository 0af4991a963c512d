package derive

import "github.com/practice/practice/internal/platform/form"

// LineTotal is quantity × unitPrice × (1 − discountPercent/100).
func LineTotal(quantity, unitPrice, discountPercent float64) float64 {
	return quantity * unitPrice * (1 - clampPercent(discountPercent)/100)
}

// Totals is the summary of an invoice.
type Totals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// InvoiceTotals sums line totals and applies the header discount and tax rate.
func InvoiceTotals(lineTotals []float64, discountAmount, taxRate float64) Totals {
	var subtotal float64
	for _, lt := range lineTotals {
		subtotal += lt
	}
	tax := (subtotal - discountAmount) * taxRate / 100
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal - discountAmount + tax,
	}
}

// LineTotals returns a copy of rows with field total set from the quantity,
// price and discount fields of each row, plus the per-row totals.
func LineTotals(rows form.Rows, quantity, price, discount, total string) (form.Rows, []float64) {
	out := make(form.Rows, len(rows))
	totals := make([]float64, len(rows))
	for i, r := range rows {
		row := make(form.Row, len(r)+1)
		for k, v := range r {
			row[k] = v
		}
		lt := LineTotal(form.CoerceNumber(r[quantity]), form.CoerceNumber(r[price]), form.CoerceNumber(r[discount]))
		row[total] = lt
		out[i] = row
		totals[i] = lt
	}
	return out, totals
}

// Pay is the summary of a payroll entry.
type Pay struct {
	Gross      float64
	Tax        float64
	Deductions float64
	Net        float64
}

// Payroll computes gross pay (base + allowances + overtime) and net pay
// (gross − tax − other deductions), floored at zero.
func Payroll(base, allowances, overtimeHours, overtimeRate, taxPercent, otherDeductions float64) Pay {
	gross := base + allowances + overtimeHours*overtimeRate
	tax := gross * clampPercent(taxPercent) / 100
	net := gross - tax - otherDeductions
	if net < 0 {
		net = 0
	}
	return Pay{Gross: gross, Tax: tax, Deductions: tax + otherDeductions, Net: net}
}

// Number reads key from s as a number, 0 when missing.
func Number(s form.Snapshot, key string) float64 {
	v, _ := s.Get(key)
	return form.CoerceNumber(v)
}

// Text reads key from s as a string, "" when missing or not text.
func Text(s form.Snapshot, key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}
