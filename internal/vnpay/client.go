// Package vnpay talks to the payment gateway: it mints the hosted payment
// redirect URL and checks instant payment notifications.
package vnpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

const ipnSuccessCode = "00"

type createRequest struct {
	Amount    json.Number `json:"amount"`
	BankCode  string      `json:"bankCode"`
	Language  string      `json:"language"`
	ReturnURL string      `json:"returnUrl"`
}

type createResponse struct {
	URL string `json:"url"`
}

type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(baseURL string, client *http.Client, timeout time.Duration) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: client,
		timeout:    timeout,
	}
}

func (c *Client) CreatePaymentURL(ctx context.Context, pr domain.PaymentRequest) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(createRequest{
		Amount:    json.Number(pr.Amount.String()),
		BankCode:  pr.BankCode,
		Language:  pr.Language,
		ReturnURL: pr.ReturnURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/vnPay/create_payment_url", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError("create payment url", err, domain.ErrGatewayUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("create payment url: %w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode payment url: %w: %v", domain.ErrGatewayUnavailable, err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("create payment url: %w: empty url", domain.ErrGatewayUnavailable)
	}
	return out.URL, nil
}

// CheckIPN echoes the gateway's return parameters to the IPN endpoint.
// A response carrying an RspCode is conclusive either way; anything else
// is ErrConfirmationIndeterminate with the raw payload kept in the result.
func (c *Client) CheckIPN(ctx context.Context, query url.Values) (domain.IPNResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pending := domain.IPNResult{Status: domain.IPNStatusPending}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/vnPay/check_ipn?"+query.Encode(), nil)
	if err != nil {
		return pending, fmt.Errorf("create ipn request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pending.Raw = err.Error()
		return pending, transportError("check ipn", err, domain.ErrConfirmationIndeterminate)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		pending.Raw = err.Error()
		return pending, transportError("read ipn response", err, domain.ErrConfirmationIndeterminate)
	}
	pending.Raw = string(body)

	if resp.StatusCode >= 500 {
		return pending, fmt.Errorf("check ipn: %w: status %d", domain.ErrConfirmationIndeterminate, resp.StatusCode)
	}

	var out ipnResponse
	if err := json.Unmarshal(body, &out); err != nil || out.RspCode == "" {
		return pending, fmt.Errorf("check ipn: %w: unrecognized response", domain.ErrConfirmationIndeterminate)
	}

	result := domain.IPNResult{
		Status:  domain.IPNStatusFailed,
		Code:    out.RspCode,
		Message: out.Message,
		Raw:     string(body),
	}
	if out.RspCode == ipnSuccessCode {
		result.Status = domain.IPNStatusSuccess
	}
	return result, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func transportError(op string, err, kind error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, kind)
	}
	return fmt.Errorf("%s: %w: %v", op, kind, err)
}
