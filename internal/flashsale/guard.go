// Package flashsale decides whether an item may enter the cart under the
// store's flash-sale policy. It performs no I/O; callers fetch the sale
// window and stock immediately before asking.
package flashsale

import (
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/clock"
	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

type Decision struct {
	Allowed bool
	Reason  domain.DenyReason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason domain.DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err is nil for an allowed decision.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &domain.DenyError{Reason: d.Reason}
}

type Guard struct {
	clock clock.Clock
	loc   *time.Location
}

// NewGuard evaluates sale-window end of day in loc. A nil loc means UTC.
func NewGuard(c clock.Clock, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{clock: c, loc: loc}
}

func (g *Guard) CanAdd(candidate domain.Product, cart []domain.CartEntry, window domain.FlashSaleWindow, stock int) Decision {
	if len(cart) > 0 && cart[0].IsFlashSale != candidate.IsFlashSale {
		return Deny(domain.DenyIncompatibleItem)
	}

	if !candidate.IsFlashSale {
		return Allow()
	}

	if !window.ExpirationDate.IsZero() {
		if !g.clock.Now().Before(g.endOfDay(window.ExpirationDate)) {
			return Deny(domain.DenySaleEnded)
		}
		if !window.IsOpen {
			return Deny(domain.DenySaleNotOpen)
		}
	}

	if stock <= 0 {
		return Deny(domain.DenySoldOut)
	}

	if len(cart) > 0 {
		return Deny(domain.DenyFlashSaleInCart)
	}

	return Allow()
}

// CanAddRegular covers the regular add path, where both flags come from the
// flash-sale service rather than from the cart entries.
func (g *Guard) CanAddRegular(cartHoldsFlashSale, candidateIsFlashSale bool) Decision {
	if cartHoldsFlashSale {
		return Deny(domain.DenyIncompatibleItem)
	}
	if candidateIsFlashSale {
		return Deny(domain.DenyFlashSaleProduct)
	}
	return Allow()
}

// endOfDay is 23:59:59 of the expiration's calendar date in the sale zone.
func (g *Guard) endOfDay(t time.Time) time.Time {
	y, m, d := t.In(g.loc).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, g.loc)
}
