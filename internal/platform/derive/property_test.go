//go:build property

package derive

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_DiscountsNeverNegative(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("coupon result within [0, amount]", prop.ForAll(
		func(amount, discount float64, fixed bool) bool {
			kind := DiscountPercent
			if fixed {
				kind = DiscountFixed
			}
			got := Coupon{Code: "X", Kind: kind, Amount: discount}.Apply(amount)
			return got >= 0 && got <= amount
		},
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 500),
		gen.Bool(),
	))
	properties.Property("line total never exceeds undiscounted", prop.ForAll(
		func(q, p, d float64) bool {
			lt := LineTotal(q, p, d)
			return lt >= 0 && lt <= q*p+1e-9
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 1000),
		gen.Float64Range(-50, 150),
	))
	properties.TestingRun(t)
}
