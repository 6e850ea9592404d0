package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type IPNStatus string

const (
	IPNStatusPending IPNStatus = "PENDING"
	IPNStatusSuccess IPNStatus = "SUCCESS"
	IPNStatusFailed  IPNStatus = "FAILED"
)

type PaymentSession struct {
	ID                 string          `json:"id"`
	OrderID            string          `json:"order_id"`
	Amount             decimal.Decimal `json:"amount"`
	BankCode           string          `json:"bank_code"`
	Language           string          `json:"language"`
	ReturnURL          string          `json:"return_url"`
	GatewayRedirectURL string          `json:"gateway_redirect_url,omitempty"`
	IPNStatus          IPNStatus       `json:"ipn_status"`
	RawConfirmation    string          `json:"raw_confirmation,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (p PaymentSession) Terminal() bool {
	return p.IPNStatus != "" && p.IPNStatus != IPNStatusPending
}

// PaymentRequest is what the gateway needs to mint a redirect URL.
type PaymentRequest struct {
	Amount    decimal.Decimal
	BankCode  string
	Language  string
	ReturnURL string
}

// IPNResult is the gateway's answer to a confirmation check. Raw holds the
// response body as received.
type IPNResult struct {
	Status  IPNStatus
	Code    string
	Message string
	Raw     string
}
