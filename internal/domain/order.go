package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusWaiting    OrderStatus = "WAITING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusReject     OrderStatus = "REJECT"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusDelivering OrderStatus = "DELIVERING"
)

const (
	PaymentTypeCreditCard = "CREDIT_CARD"
	BuyTypeOnline         = "ONLINE"
)

type Order struct {
	ID          string          `json:"id"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      OrderStatus     `json:"status"`
	PaymentType string          `json:"payment_type"`
	BuyType     string          `json:"buy_type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CanRepay reports whether the order may go through online payment again.
func (o Order) CanRepay() bool {
	return o.Status == OrderStatusWaiting &&
		o.PaymentType == PaymentTypeCreditCard &&
		o.BuyType == BuyTypeOnline
}
