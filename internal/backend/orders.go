package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

type orderEnvelope struct {
	Payload struct {
		ID          string             `json:"_id"`
		TotalPrice  decimal.Decimal    `json:"totalPrice"`
		Status      domain.OrderStatus `json:"status"`
		PaymentType string             `json:"paymentType"`
		BuyType     string             `json:"buyType"`
		CreatedAt   time.Time          `json:"createdAt"`
	} `json:"payload"`
}

type OrdersClient struct {
	c *client
}

func NewOrdersClient(baseURL string, hc *http.Client, timeout time.Duration) *OrdersClient {
	return &OrdersClient{c: newClient(baseURL, hc, timeout)}
}

func (o *OrdersClient) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var env orderEnvelope
	if err := o.c.do(ctx, http.MethodGet, "/orders-admin/"+url.PathEscape(id), nil, &env); err != nil {
		return domain.Order{}, err
	}
	p := env.Payload
	return domain.Order{
		ID:          p.ID,
		TotalPrice:  p.TotalPrice,
		Status:      p.Status,
		PaymentType: p.PaymentType,
		BuyType:     p.BuyType,
		CreatedAt:   p.CreatedAt,
	}, nil
}

func (o *OrdersClient) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	body := map[string]string{"status": string(status)}
	return o.c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, nil)
}
