package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CART_SERVICE_URL", "http://cart:9000/")
	t.Setenv("FLASHSALE_SERVICE_URL", "http://flashsale:9000")
	t.Setenv("ORDERS_SERVICE_URL", "http://orders:9000")
	t.Setenv("CARRIER_URL", "https://carrier.example/v2")
	t.Setenv("PAYMENT_GATEWAY_URL", "http://payments:9000")
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Port != "8080" {
			t.Errorf("expected port 8080, got %s", cfg.Port)
		}
		if cfg.CartServiceURL != "http://cart:9000" {
			t.Errorf("expected trailing slash trimmed, got %s", cfg.CartServiceURL)
		}
		if cfg.Carrier.FromDistrictID != 1526 || cfg.Carrier.FromWardCode != "40103" {
			t.Errorf("unexpected carrier origin: %+v", cfg.Carrier)
		}
		if cfg.Carrier.ServiceTypeID != 2 || cfg.Carrier.CODFailedAmount != 2000 {
			t.Errorf("unexpected carrier service settings: %+v", cfg.Carrier)
		}
		if cfg.Payment.ExchangeRate.String() != "24000" {
			t.Errorf("expected exchange rate 24000, got %s", cfg.Payment.ExchangeRate)
		}
		if cfg.FlatShippingFee.String() != "5" {
			t.Errorf("expected flat fee 5, got %s", cfg.FlatShippingFee)
		}
		if cfg.ExternalCallTimeout != 10*time.Second {
			t.Errorf("expected 10s timeout, got %s", cfg.ExternalCallTimeout)
		}
		if cfg.SubmitPolicy != SubmitReject {
			t.Errorf("expected reject policy, got %s", cfg.SubmitPolicy)
		}
		if cfg.SaleLocation.String() != "Asia/Ho_Chi_Minh" {
			t.Errorf("unexpected sale location %s", cfg.SaleLocation)
		}
		if cfg.KafkaBrokers != nil {
			t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
		}
	})

	t.Run("reads overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("CHECKOUT_SUBMIT_POLICY", "QUEUE")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
		t.Setenv("EXTERNAL_CALL_TIMEOUT", "2s")
		t.Setenv("FLAT_SHIPPING_FEE", "4.50")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SubmitPolicy != SubmitQueue {
			t.Errorf("expected queue policy, got %s", cfg.SubmitPolicy)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
			t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
		}
		if cfg.ExternalCallTimeout != 2*time.Second {
			t.Errorf("expected 2s, got %s", cfg.ExternalCallTimeout)
		}
		if cfg.FlatShippingFee.StringFixed(2) != "4.50" {
			t.Errorf("expected 4.50, got %s", cfg.FlatShippingFee)
		}
	})

	t.Run("reports every missing and malformed variable", func(t *testing.T) {
		for _, k := range []string{"CART_SERVICE_URL", "FLASHSALE_SERVICE_URL", "ORDERS_SERVICE_URL", "CARRIER_URL", "PAYMENT_GATEWAY_URL"} {
			t.Setenv(k, "")
		}
		t.Setenv("CARRIER_FROM_DISTRICT_ID", "north")
		t.Setenv("SESSION_IDLE_TTL", "forever")
		t.Setenv("CHECKOUT_SUBMIT_POLICY", "retry")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error")
		}
		msg := err.Error()
		for _, want := range []string{"CART_SERVICE_URL", "PAYMENT_GATEWAY_URL", "CARRIER_FROM_DISTRICT_ID", "SESSION_IDLE_TTL", "CHECKOUT_SUBMIT_POLICY"} {
			if !strings.Contains(msg, want) {
				t.Errorf("expected error to mention %s, got %q", want, msg)
			}
		}
	})
}

func TestLoadWorker(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ORDERS_SERVICE_URL", "http://orders:9000/")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

		cfg, err := LoadWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.OrdersServiceURL != "http://orders:9000" {
			t.Errorf("expected trailing slash trimmed, got %s", cfg.OrdersServiceURL)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
			t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
		}
		if cfg.CheckoutTopic != "checkout.events" || cfg.ConsumerGroup != "checkout-worker" {
			t.Errorf("unexpected topic/group %s/%s", cfg.CheckoutTopic, cfg.ConsumerGroup)
		}
	})

	t.Run("brokers are required", func(t *testing.T) {
		t.Setenv("ORDERS_SERVICE_URL", "http://orders:9000")
		t.Setenv("KAFKA_BROKERS", "")

		_, err := LoadWorker()
		if err == nil || !strings.Contains(err.Error(), "KAFKA_BROKERS") {
			t.Fatalf("expected KAFKA_BROKERS error, got %v", err)
		}
	})
}
