package derive

import (
	"math"
	"strings"
)

// PriceTable maps a service type to its base price. Unknown services price
// at Fallback.
type PriceTable struct {
	Prices   map[string]float64
	Fallback float64
}

// Price returns the base price of service and whether it was listed.
func (t PriceTable) Price(service string) (float64, bool) {
	p, ok := t.Prices[strings.TrimSpace(service)]
	if !ok {
		return t.Fallback, false
	}
	return p, true
}

// DiscountKind distinguishes percentage and fixed-amount coupons.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// Coupon is a discount code.
type Coupon struct {
	Code   string       `json:"code" yaml:"code"`
	Kind   DiscountKind `json:"kind" yaml:"kind"`
	Amount float64      `json:"amount" yaml:"amount"`
}

// Apply discounts amount, never going below zero.
func (c Coupon) Apply(amount float64) float64 {
	var out float64
	switch c.Kind {
	case DiscountFixed:
		out = amount - c.Amount
	default:
		out = amount - amount*clampPercent(c.Amount)/100
	}
	return math.Max(out, 0)
}

// CouponTable looks coupons up by code, ignoring case and surrounding space.
type CouponTable struct {
	byCode map[string]Coupon
}

// NewCouponTable indexes the given coupons.
func NewCouponTable(coupons ...Coupon) CouponTable {
	t := CouponTable{byCode: make(map[string]Coupon, len(coupons))}
	for _, c := range coupons {
		t.byCode[NormalizeCode(c.Code)] = c
	}
	return t
}

// Lookup returns the coupon for code. Unknown and empty codes report false.
func (t CouponTable) Lookup(code string) (Coupon, bool) {
	c, ok := t.byCode[NormalizeCode(code)]
	return c, ok
}

// Apply discounts amount with the coupon for code. Unknown codes leave the
// amount unchanged.
func (t CouponTable) Apply(code string, amount float64) float64 {
	c, ok := t.Lookup(code)
	if !ok {
		return amount
	}
	return c.Apply(amount)
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func clampPercent(f float64) float64 {
	return math.Min(math.Max(f, 0), 100)
}
