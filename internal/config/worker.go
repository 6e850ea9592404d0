package config

import (
	"errors"
	"time"
)

// Worker is the checkout-event worker's configuration.
type Worker struct {
	OrdersServiceURL    string
	KafkaBrokers        []string
	CheckoutTopic       string
	ConsumerGroup       string
	ExternalCallTimeout time.Duration
	MetricsPort         string
	OTLPEndpoint        string
}

func LoadWorker() (*Worker, error) {
	l := &loader{}

	cfg := &Worker{
		OrdersServiceURL:    l.required("ORDERS_SERVICE_URL"),
		KafkaBrokers:        l.list("KAFKA_BROKERS"),
		CheckoutTopic:       l.str("CHECKOUT_TOPIC", "checkout.events"),
		ConsumerGroup:       l.str("CONSUMER_GROUP", "checkout-worker"),
		ExternalCallTimeout: l.duration("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
		MetricsPort:         l.str("METRICS_PORT", "9091"),
		OTLPEndpoint:        l.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if len(cfg.KafkaBrokers) == 0 {
		l.errs = append(l.errs, errors.New("KAFKA_BROKERS is required"))
	}

	if err := errors.Join(l.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}
