package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Length int `json:"length"`
	Weight int `json:"weight"`
}

type CartEntry struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Dimensions      Dimensions      `json:"dimensions"`
	IsFlashSale     bool            `json:"is_flash_sale"`
}

func (e CartEntry) Validate() error {
	if e.ProductID == "" {
		return fmt.Errorf("cart entry %q: missing product id", e.ID)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("cart entry %q: quantity must be positive, got %d", e.ID, e.Quantity)
	}
	if e.UnitPrice.IsNegative() {
		return fmt.Errorf("cart entry %q: negative unit price %s", e.ID, e.UnitPrice)
	}
	if e.DiscountPercent < 0 || e.DiscountPercent > 100 {
		return fmt.Errorf("cart entry %q: discount %d outside 0-100", e.ID, e.DiscountPercent)
	}
	d := e.Dimensions
	if d.Width < 0 || d.Height < 0 || d.Length < 0 || d.Weight < 0 {
		return fmt.Errorf("cart entry %q: negative dimensions", e.ID)
	}
	return nil
}

// Product is a catalog item the shopper asks to put in the cart.
type Product struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Dimensions      Dimensions      `json:"dimensions"`
	IsFlashSale     bool            `json:"is_flash_sale"`
}

type CartState struct {
	Entries   []CartEntry     `json:"entries"`
	Coupon    string          `json:"coupon"`
	TotalItem int             `json:"total_item"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	Loading   bool            `json:"loading"`
	LastError ErrorKind       `json:"last_error,omitempty"`

	// Drifted is set by local-only mutations and cleared by the next
	// authoritative refresh from the cart backend.
	Drifted bool `json:"drifted"`

	Quote               *ShippingQuote `json:"shipping_quote,omitempty"`
	ShippingUnavailable bool           `json:"shipping_unavailable"`
}

func (s CartState) Clone() CartState {
	c := s
	if s.Entries != nil {
		c.Entries = make([]CartEntry, len(s.Entries))
		copy(c.Entries, s.Entries)
	}
	if s.Quote != nil {
		q := *s.Quote
		c.Quote = &q
	}
	return c
}

func (s CartState) IsEmpty() bool {
	return len(s.Entries) == 0
}

// HoldsFlashSale reports whether the cart currently contains flash-sale
// entries. Carts are homogeneous, so the first entry decides.
func (s CartState) HoldsFlashSale() bool {
	return len(s.Entries) > 0 && s.Entries[0].IsFlashSale
}

func (s CartState) Find(entryID string) (CartEntry, bool) {
	for _, e := range s.Entries {
		if e.ID == entryID {
			return e, true
		}
	}
	return CartEntry{}, false
}

const (
	CouponFreeShipping = "freeship"
	CouponTenPercent   = "10%"
)
