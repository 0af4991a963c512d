package appointment

import (
	_ "embed"
	"fmt"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
)

//go:embed form.yaml
var formYAML []byte

// Coupons are the discount codes accepted at booking.
var Coupons = derive.NewCouponTable(
	derive.Coupon{Code: "WELCOME10", Kind: derive.DiscountPercent, Amount: 10},
	derive.Coupon{Code: "SAVE20", Kind: derive.DiscountPercent, Amount: 20},
	derive.Coupon{Code: "FLAT15", Kind: derive.DiscountFixed, Amount: 15},
)

// FeeRule prices the service and applies the coupon. Unknown coupon codes
// leave the base price.
func FeeRule(prices func() derive.PriceTable, coupons derive.CouponTable) derive.Rule {
	return derive.Rule{
		Name:     "fee",
		Triggers: []string{"serviceType", "couponCode"},
		Outputs:  []string{"fee"},
		Compute: func(s form.Snapshot) map[string]any {
			base, _ := prices().Price(derive.Text(s, "serviceType"))
			return map[string]any{"fee": coupons.Apply(derive.Text(s, "couponCode"), base)}
		},
	}
}

// Form returns the booking wizard. prices is read on every fee computation.
func Form(prices func() derive.PriceTable, coupons derive.CouponTable) (*forms.Entry, error) {
	def, err := form.LoadDefinition(formYAML)
	if err != nil {
		return nil, fmt.Errorf("appointment form: %w", err)
	}
	engine, err := derive.NewEngine(FeeRule(prices, coupons))
	if err != nil {
		return nil, fmt.Errorf("appointment form: %w", err)
	}
	return &forms.Entry{Definition: def, Derive: engine, Label: "Appointment"}, nil
}
