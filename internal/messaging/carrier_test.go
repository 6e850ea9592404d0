package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: contentTypeHeader, Value: []byte("application/json")}}}
	c := NewMessageCarrier(&msg)

	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	if got := c.Get("traceparent"); got != "b" {
		t.Errorf("expected overwrite to b, got %q", got)
	}
	if len(c.Keys()) != 2 {
		t.Errorf("expected two headers, got %v", c.Keys())
	}
	if c.Get("missing") != "" {
		t.Error("expected empty value for a missing header")
	}
}

func TestMessageCarrier_PropagatesTraceContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	prop := propagation.TraceContext{}
	var msg kafka.Message
	prop.Inject(ctx, NewMessageCarrier(&msg))

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), NewMessageCarrier(&msg)))
	if extracted.TraceID() != traceID || extracted.SpanID() != spanID {
		t.Errorf("trace context lost: %s/%s", extracted.TraceID(), extracted.SpanID())
	}
}
