package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutEvent struct {
	OrderID   string          `json:"order_id"`
	SessionID string          `json:"session_id"`
	Status    IPNStatus       `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}
