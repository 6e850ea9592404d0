package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

type SubmitPolicy string

const (
	SubmitReject SubmitPolicy = "reject"
	SubmitQueue  SubmitPolicy = "queue"
)

type Carrier struct {
	URL             string
	Token           string
	FromDistrictID  int
	FromWardCode    string
	ServiceTypeID   int
	CODFailedAmount int
}

type Payment struct {
	GatewayURL   string
	ReturnURL    string
	BankCode     string
	Language     string
	ExchangeRate decimal.Decimal
}

type Config struct {
	Port string

	CartServiceURL      string
	FlashSaleServiceURL string
	OrdersServiceURL    string

	Carrier Carrier
	Payment Payment

	FlatShippingFee     decimal.Decimal
	ExternalCallTimeout time.Duration
	SessionIdleTTL      time.Duration
	OrderCookieTTL      time.Duration
	SaleLocation        *time.Location
	SubmitPolicy        SubmitPolicy

	PostgresURL   string
	RedisAddr     string
	KafkaBrokers  []string
	CheckoutTopic string
	OTLPEndpoint  string
}

// Load reads the storefront configuration from the environment. Every
// problem is reported, not only the first one.
func Load() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		Port: l.str("PORT", "8080"),

		CartServiceURL:      l.required("CART_SERVICE_URL"),
		FlashSaleServiceURL: l.required("FLASHSALE_SERVICE_URL"),
		OrdersServiceURL:    l.required("ORDERS_SERVICE_URL"),

		Carrier: Carrier{
			URL:             l.required("CARRIER_URL"),
			Token:           l.str("CARRIER_TOKEN", ""),
			FromDistrictID:  l.integer("CARRIER_FROM_DISTRICT_ID", 1526),
			FromWardCode:    l.str("CARRIER_FROM_WARD_CODE", "40103"),
			ServiceTypeID:   l.integer("CARRIER_SERVICE_TYPE_ID", 2),
			CODFailedAmount: l.integer("CARRIER_COD_FAILED_AMOUNT", 2000),
		},
		Payment: Payment{
			GatewayURL:   l.required("PAYMENT_GATEWAY_URL"),
			ReturnURL:    l.str("PAYMENT_RETURN_URL", ""),
			BankCode:     l.str("PAYMENT_BANK_CODE", "NCB"),
			Language:     l.str("PAYMENT_LANGUAGE", "en"),
			ExchangeRate: l.amount("PAYMENT_EXCHANGE_RATE", "24000"),
		},

		FlatShippingFee:     l.amount("FLAT_SHIPPING_FEE", "5"),
		ExternalCallTimeout: l.duration("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
		SessionIdleTTL:      l.duration("SESSION_IDLE_TTL", 30*time.Minute),
		OrderCookieTTL:      l.duration("ORDER_COOKIE_TTL", 15*time.Minute),
		SaleLocation:        l.location("SALE_TIMEZONE", "Asia/Ho_Chi_Minh"),
		SubmitPolicy:        l.policy("CHECKOUT_SUBMIT_POLICY"),

		PostgresURL:   l.str("POSTGRES_URL", ""),
		RedisAddr:     l.str("REDIS_ADDR", ""),
		KafkaBrokers:  l.list("KAFKA_BROKERS"),
		CheckoutTopic: l.str("CHECKOUT_TOPIC", "checkout.events"),
		OTLPEndpoint:  l.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := errors.Join(l.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

type loader struct {
	errs []error
}

func (l *loader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (l *loader) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		l.errs = append(l.errs, fmt.Errorf("%s is required", key))
	}
	return strings.TrimRight(v, "/")
}

func (l *loader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (l *loader) amount(key, def string) decimal.Decimal {
	v := l.str(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return decimal.Zero
	}
	if d.IsNegative() {
		l.errs = append(l.errs, fmt.Errorf("%s: must not be negative", key))
	}
	return d
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	if d <= 0 {
		l.errs = append(l.errs, fmt.Errorf("%s: must be positive", key))
	}
	return d
}

func (l *loader) location(key, def string) *time.Location {
	loc, err := time.LoadLocation(l.str(key, def))
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return time.UTC
	}
	return loc
}

func (l *loader) policy(key string) SubmitPolicy {
	switch p := SubmitPolicy(strings.ToLower(l.str(key, string(SubmitReject)))); p {
	case SubmitReject, SubmitQueue:
		return p
	default:
		l.errs = append(l.errs, fmt.Errorf("%s: unknown policy %q", key, p))
		return SubmitReject
	}
}

func (l *loader) list(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
