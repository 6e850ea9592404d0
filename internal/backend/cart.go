package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

type cartEnvelope struct {
	Payload []cartItem `json:"payload"`
}

type cartItem struct {
	ID            string        `json:"id"`
	Product       cartLine      `json:"product"`
	ProductDetail productDetail `json:"productDetail"`
}

type cartLine struct {
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	IsFlashSale bool   `json:"isFlashSale,omitempty"`
}

type productDetail struct {
	Price    decimal.Decimal `json:"price"`
	Discount int             `json:"discount"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Length   int             `json:"length"`
	Weight   int             `json:"weight"`
}

func (i cartItem) toEntry() domain.CartEntry {
	return domain.CartEntry{
		ID:              i.ID,
		ProductID:       i.Product.ProductID,
		Quantity:        i.Product.Quantity,
		UnitPrice:       i.ProductDetail.Price,
		DiscountPercent: i.ProductDetail.Discount,
		Dimensions: domain.Dimensions{
			Width:  i.ProductDetail.Width,
			Height: i.ProductDetail.Height,
			Length: i.ProductDetail.Length,
			Weight: i.ProductDetail.Weight,
		},
		IsFlashSale: i.Product.IsFlashSale,
	}
}

type CartClient struct {
	c *client
}

func NewCartClient(baseURL string, hc *http.Client, timeout time.Duration) *CartClient {
	return &CartClient{c: newClient(baseURL, hc, timeout)}
}

func (cc *CartClient) List(ctx context.Context) ([]domain.CartEntry, error) {
	return cc.fetch(ctx, http.MethodGet, "/cart")
}

func (cc *CartClient) ListFlashSale(ctx context.Context) ([]domain.CartEntry, error) {
	return cc.fetch(ctx, http.MethodGet, "/cart/get-cart-flashsale")
}

func (cc *CartClient) Add(ctx context.Context, p domain.Product) error {
	line := cartLine{ProductID: p.ProductID, Quantity: p.Quantity, IsFlashSale: p.IsFlashSale}
	return cc.c.do(ctx, http.MethodPost, "/cart", line, nil)
}

func (cc *CartClient) Update(ctx context.Context, e domain.CartEntry) error {
	line := cartLine{ProductID: e.ProductID, Quantity: e.Quantity, IsFlashSale: e.IsFlashSale}
	return cc.c.do(ctx, http.MethodPut, "/cart", line, nil)
}

func (cc *CartClient) Remove(ctx context.Context, productID string) error {
	return cc.c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), nil, nil)
}

// Clear empties the cart and returns whatever the backend reports as left.
func (cc *CartClient) Clear(ctx context.Context) ([]domain.CartEntry, error) {
	return cc.fetch(ctx, http.MethodDelete, "/cart")
}

func (cc *CartClient) fetch(ctx context.Context, method, path string) ([]domain.CartEntry, error) {
	var env cartEnvelope
	if err := cc.c.do(ctx, method, path, nil, &env); err != nil {
		return nil, err
	}

	entries := make([]domain.CartEntry, 0, len(env.Payload))
	for _, item := range env.Payload {
		entry := item.toEntry()
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrBackendUnavailable, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
