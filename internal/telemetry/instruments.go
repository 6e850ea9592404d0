package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/joao-fontenele/storefront-cart"

// Instruments holds the business metrics. A nil *Instruments records
// nothing, which keeps unit tests free of meter setup.
type Instruments struct {
	cartMutations         metric.Int64Counter
	flashSaleDenials      metric.Int64Counter
	checkoutTransitions   metric.Int64Counter
	shippingQuoteDuration metric.Float64Histogram
}

func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(meterName)

	cartMutations, err := meter.Int64Counter("cart.mutations",
		metric.WithDescription("Cart operations by outcome"))
	if err != nil {
		return nil, err
	}

	flashSaleDenials, err := meter.Int64Counter("flashsale.denials",
		metric.WithDescription("Cart additions refused by flash-sale policy"))
	if err != nil {
		return nil, err
	}

	checkoutTransitions, err := meter.Int64Counter("checkout.transitions",
		metric.WithDescription("Checkout state machine transitions by target state"))
	if err != nil {
		return nil, err
	}

	shippingQuoteDuration, err := meter.Float64Histogram("shipping.quote.duration",
		metric.WithDescription("Carrier fee quote latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		cartMutations:         cartMutations,
		flashSaleDenials:      flashSaleDenials,
		checkoutTransitions:   checkoutTransitions,
		shippingQuoteDuration: shippingQuoteDuration,
	}, nil
}

func (i *Instruments) CartMutation(ctx context.Context, operation, outcome string) {
	if i == nil {
		return
	}
	i.cartMutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (i *Instruments) FlashSaleDenial(ctx context.Context, reason string) {
	if i == nil {
		return
	}
	i.flashSaleDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (i *Instruments) CheckoutTransition(ctx context.Context, state string) {
	if i == nil {
		return
	}
	i.checkoutTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

func (i *Instruments) ShippingQuote(ctx context.Context, elapsed time.Duration, outcome string) {
	if i == nil {
		return
	}
	i.shippingQuoteDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
