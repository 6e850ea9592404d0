package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

type checkResponse struct {
	Message        string `json:"message"`
	FlashSaleStock int    `json:"flashsaleStock"`
}

type windowResponse struct {
	Payload struct {
		ExpirationTime  string `json:"expirationTime"`
		IsOpenFlashSale bool   `json:"isOpenFlashsale"`
	} `json:"payload"`
}

type FlashSaleClient struct {
	c   *client
	loc *time.Location
}

// NewFlashSaleClient reads expiration dates as calendar dates in loc.
func NewFlashSaleClient(baseURL string, hc *http.Client, timeout time.Duration, loc *time.Location) *FlashSaleClient {
	if loc == nil {
		loc = time.UTC
	}
	return &FlashSaleClient{c: newClient(baseURL, hc, timeout), loc: loc}
}

func (f *FlashSaleClient) CheckProduct(ctx context.Context, productID string) (domain.FlashSaleStock, error) {
	var resp checkResponse
	path := "/flashSale/check-flashsale?productId=" + url.QueryEscape(productID)
	if err := f.c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return domain.FlashSaleStock{}, err
	}
	return domain.FlashSaleStock{
		Found: resp.Message == "found",
		Stock: resp.FlashSaleStock,
	}, nil
}

func (f *FlashSaleClient) Window(ctx context.Context) (domain.FlashSaleWindow, error) {
	var resp windowResponse
	if err := f.c.do(ctx, http.MethodGet, "/time-flashsale", nil, &resp); err != nil {
		return domain.FlashSaleWindow{}, err
	}

	window := domain.FlashSaleWindow{IsOpen: resp.Payload.IsOpenFlashSale}
	if raw := resp.Payload.ExpirationTime; raw != "" {
		if len(raw) < len(time.DateOnly) {
			return domain.FlashSaleWindow{}, fmt.Errorf("flash-sale window: %w: bad expiration %q", domain.ErrBackendUnavailable, raw)
		}
		date, err := time.ParseInLocation(time.DateOnly, raw[:len(time.DateOnly)], f.loc)
		if err != nil {
			return domain.FlashSaleWindow{}, fmt.Errorf("flash-sale window: %w: %v", domain.ErrBackendUnavailable, err)
		}
		window.ExpirationDate = date
	}
	return window, nil
}
