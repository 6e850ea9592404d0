package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/telemetry"
)

// Origin is the seller's warehouse and the carrier service used for every
// quote.
type Origin struct {
	DistrictID      int
	WardCode        string
	ServiceTypeID   int
	CODFailedAmount int
}

type feeRequest struct {
	FromDistrictID  int     `json:"from_district_id"`
	FromWardCode    string  `json:"from_ward_code"`
	ServiceTypeID   int     `json:"service_type_id"`
	Height          int     `json:"height"`
	Length          int     `json:"length"`
	Weight          int     `json:"weight"`
	Width           int     `json:"width"`
	ToDistrictID    int     `json:"to_district_id"`
	ToWardCode      string  `json:"to_ward_code"`
	InsuranceValue  int     `json:"insurance_value"`
	CODFailedAmount int     `json:"cod_failed_amount"`
	Coupon          *string `json:"coupon"`
}

type feeResponse struct {
	Data struct {
		Total *decimal.Decimal `json:"total"`
	} `json:"data"`
}

type Client struct {
	baseURL     string
	token       string
	origin      Origin
	httpClient  *http.Client
	timeout     time.Duration
	instruments *telemetry.Instruments
}

func NewClient(baseURL, token string, origin Origin, client *http.Client, timeout time.Duration, instruments *telemetry.Instruments) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:     baseURL,
		token:       token,
		origin:      origin,
		httpClient:  client,
		timeout:     timeout,
		instruments: instruments,
	}
}

// Aggregate sums every dimension multiplied by its entry's quantity. The
// carrier quotes the whole cart as one bulk package.
func Aggregate(entries []domain.CartEntry) domain.Dimensions {
	var total domain.Dimensions
	for _, e := range entries {
		total.Width += e.Dimensions.Width * e.Quantity
		total.Height += e.Dimensions.Height * e.Quantity
		total.Length += e.Dimensions.Length * e.Quantity
		total.Weight += e.Dimensions.Weight * e.Quantity
	}
	return total
}

func (c *Client) Estimate(ctx context.Context, entries []domain.CartEntry, to domain.Address) (domain.ShippingQuote, error) {
	start := time.Now()
	quote, err := c.estimate(ctx, entries, to)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.instruments.ShippingQuote(ctx, time.Since(start), outcome)

	return quote, err
}

func (c *Client) estimate(ctx context.Context, entries []domain.CartEntry, to domain.Address) (domain.ShippingQuote, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	dims := Aggregate(entries)
	body := feeRequest{
		FromDistrictID:  c.origin.DistrictID,
		FromWardCode:    c.origin.WardCode,
		ServiceTypeID:   c.origin.ServiceTypeID,
		Height:          dims.Height,
		Length:          dims.Length,
		Weight:          dims.Weight,
		Width:           dims.Width,
		ToDistrictID:    to.DistrictID,
		ToWardCode:      to.WardCode,
		CODFailedAmount: c.origin.CODFailedAmount,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return domain.ShippingQuote{}, fmt.Errorf("marshal fee request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipping-order/fee", bytes.NewReader(data))
	if err != nil {
		return domain.ShippingQuote{}, fmt.Errorf("create fee request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ShippingQuote{}, fmt.Errorf("carrier fee: %w: %w", domain.ErrTimeout, domain.ErrShippingQuoteUnavailable)
		}
		return domain.ShippingQuote{}, fmt.Errorf("carrier fee: %w: %v", domain.ErrShippingQuoteUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.ShippingQuote{}, fmt.Errorf("carrier fee: %w: status %d", domain.ErrShippingQuoteUnavailable, resp.StatusCode)
	}

	var fee feeResponse
	if err := json.NewDecoder(resp.Body).Decode(&fee); err != nil {
		return domain.ShippingQuote{}, fmt.Errorf("decode carrier fee: %w: %v", domain.ErrShippingQuoteUnavailable, err)
	}
	if fee.Data.Total == nil || fee.Data.Total.IsNegative() {
		return domain.ShippingQuote{}, fmt.Errorf("carrier fee: %w: missing total", domain.ErrShippingQuoteUnavailable)
	}

	return domain.ShippingQuote{
		OriginDistrictID:      c.origin.DistrictID,
		OriginWardCode:        c.origin.WardCode,
		DestinationDistrictID: to.DistrictID,
		DestinationWardCode:   to.WardCode,
		TotalWeight:           dims.Weight,
		TotalWidth:            dims.Width,
		TotalHeight:           dims.Height,
		TotalLength:           dims.Length,
		ServiceTypeID:         c.origin.ServiceTypeID,
		FeeAmount:             *fee.Data.Total,
	}, nil
}
