// Package pricing derives cart totals. All arithmetic is fixed-point and
// unrounded; rounding happens once, in Display and LineDiscountedPrice.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type Calculator struct {
	flatFee decimal.Decimal
}

func NewCalculator(flatShippingFee decimal.Decimal) *Calculator {
	return &Calculator{flatFee: flatShippingFee}
}

func (c *Calculator) FlatFee() decimal.Decimal {
	return c.flatFee
}

func Subtotal(entries []domain.CartEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return sum
}

// ItemCount is the number of units in the cart, not the number of lines.
func ItemCount(entries []domain.CartEntry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}

func LineDiscountedPrice(e domain.CartEntry) decimal.Decimal {
	pct := decimal.NewFromInt(int64(100 - e.DiscountPercent))
	return e.UnitPrice.Mul(pct).Div(hundred).Round(2)
}

// IsCoupon reports whether code is one of the recognized coupons.
func IsCoupon(code string) bool {
	return code == domain.CouponFreeShipping || code == domain.CouponTenPercent
}

// ApplyCoupon transforms shipping and total for a recognized code. Unknown
// codes and empty carts leave t unchanged.
func (c *Calculator) ApplyCoupon(t Totals, code string, cartEmpty bool) (Totals, bool) {
	if !IsCoupon(code) {
		return t, false
	}
	if cartEmpty {
		return t, true
	}

	switch code {
	case domain.CouponFreeShipping:
		t.Shipping = decimal.Zero
		t.Total = t.Subtotal
	case domain.CouponTenPercent:
		t.Shipping = c.flatFee
		t.Total = t.Subtotal.Mul(decimal.NewFromInt(90)).Div(hundred).Add(c.flatFee)
	}
	return t, true
}

// Recompute derives totals from scratch, re-applying the active coupon.
func (c *Calculator) Recompute(entries []domain.CartEntry, coupon string) Totals {
	t := Totals{Subtotal: Subtotal(entries), Shipping: decimal.Zero}
	if len(entries) > 0 {
		t.Shipping = c.flatFee
	}
	t.Total = t.Subtotal.Add(t.Shipping)

	t, _ = c.ApplyCoupon(t, coupon, len(entries) == 0)
	return t
}

func (c *Calculator) RecomputeOnIncrease(s domain.CartState, entryID string) (domain.CartState, error) {
	next := s.Clone()
	idx := indexOf(next.Entries, entryID)
	if idx < 0 {
		return s, fmt.Errorf("increase %q: %w", entryID, domain.ErrEntryNotFound)
	}

	entry := next.Entries[idx]
	next.Entries[idx].Quantity++
	next.TotalItem++
	next.Subtotal = next.Subtotal.Add(entry.UnitPrice)
	next.Shipping = c.flatFee
	next.Coupon = ""
	next.Total = next.Subtotal.Add(next.Shipping)
	return next, nil
}

func (c *Calculator) RecomputeOnDecrease(s domain.CartState, entryID string) (domain.CartState, error) {
	next := s.Clone()
	idx := indexOf(next.Entries, entryID)
	if idx < 0 {
		return s, fmt.Errorf("decrease %q: %w", entryID, domain.ErrEntryNotFound)
	}

	entry := next.Entries[idx]
	if entry.Quantity <= 1 {
		next.Entries = append(next.Entries[:idx], next.Entries[idx+1:]...)
	} else {
		next.Entries[idx].Quantity--
	}
	next.TotalItem--
	next.Subtotal = next.Subtotal.Sub(entry.UnitPrice)
	next.Shipping = c.flatFee
	if len(next.Entries) == 0 {
		next.Shipping = decimal.Zero
	}
	next.Coupon = ""
	next.Total = next.Subtotal.Add(next.Shipping)
	return next, nil
}

func indexOf(entries []domain.CartEntry, entryID string) int {
	for i, e := range entries {
		if e.ID == entryID {
			return i
		}
	}
	return -1
}

// ParseAmount validates a monetary value arriving from outside the process.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("parse amount %q: negative", s)
	}
	return d, nil
}

// Display renders an amount with two fractional digits, rounding half-up.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
