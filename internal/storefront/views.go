package storefront

import (
	"github.com/joao-fontenele/storefront-cart/internal/cart"
	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/pricing"
)

// Money leaves the storefront as fixed two-place strings.

type entryView struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"product_id"`
	Quantity        int               `json:"quantity"`
	UnitPrice       string            `json:"unit_price"`
	DiscountPercent int               `json:"discount_percent"`
	DiscountedPrice string            `json:"discounted_price"`
	Dimensions      domain.Dimensions `json:"dimensions"`
	IsFlashSale     bool              `json:"is_flash_sale"`
}

type quoteView struct {
	FeeAmount     string `json:"fee_amount"`
	TotalWeight   int    `json:"total_weight"`
	TotalWidth    int    `json:"total_width"`
	TotalHeight   int    `json:"total_height"`
	TotalLength   int    `json:"total_length"`
	ServiceTypeID int    `json:"service_type_id"`
}

type cartView struct {
	Entries             []entryView      `json:"entries"`
	Coupon              string           `json:"coupon,omitempty"`
	TotalItem           int              `json:"total_item"`
	Subtotal            string           `json:"subtotal"`
	Shipping            string           `json:"shipping"`
	Total               string           `json:"total"`
	Loading             bool             `json:"loading"`
	LastError           domain.ErrorKind `json:"last_error,omitempty"`
	Drifted             bool             `json:"drifted"`
	ShippingQuote       *quoteView       `json:"shipping_quote,omitempty"`
	ShippingUnavailable bool             `json:"shipping_unavailable"`
}

type mutationResponse struct {
	State  cartView    `json:"state"`
	Notice cart.Notice `json:"notice"`
}

func newCartView(s domain.CartState) cartView {
	v := cartView{
		Entries:             make([]entryView, 0, len(s.Entries)),
		Coupon:              s.Coupon,
		TotalItem:           s.TotalItem,
		Subtotal:            pricing.Display(s.Subtotal),
		Shipping:            pricing.Display(s.Shipping),
		Total:               pricing.Display(s.Total),
		Loading:             s.Loading,
		LastError:           s.LastError,
		Drifted:             s.Drifted,
		ShippingUnavailable: s.ShippingUnavailable,
	}
	for _, e := range s.Entries {
		v.Entries = append(v.Entries, entryView{
			ID:              e.ID,
			ProductID:       e.ProductID,
			Quantity:        e.Quantity,
			UnitPrice:       pricing.Display(e.UnitPrice),
			DiscountPercent: e.DiscountPercent,
			DiscountedPrice: pricing.Display(pricing.LineDiscountedPrice(e)),
			Dimensions:      e.Dimensions,
			IsFlashSale:     e.IsFlashSale,
		})
	}
	if q := s.Quote; q != nil {
		v.ShippingQuote = &quoteView{
			FeeAmount:     pricing.Display(q.FeeAmount),
			TotalWeight:   q.TotalWeight,
			TotalWidth:    q.TotalWidth,
			TotalHeight:   q.TotalHeight,
			TotalLength:   q.TotalLength,
			ServiceTypeID: q.ServiceTypeID,
		}
	}
	return v
}
