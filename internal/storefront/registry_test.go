package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/cart"
	"github.com/joao-fontenele/storefront-cart/internal/checkout"
	"github.com/joao-fontenele/storefront-cart/internal/clock"
	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/pricing"
)

func TestRegistry_Sweep(t *testing.T) {
	ctx := context.Background()
	mc := clock.NewMockClock(testNow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	factory := func() (*cart.Store, *checkout.Initiator) {
		return cart.NewStore(cart.Deps{Calculator: pricing.NewCalculator(decimal.NewFromInt(5)), Logger: logger}),
			checkout.NewInitiator(checkout.Options{}, checkout.Deps{Logger: logger})
	}
	r := NewRegistry(factory, mc, 30*time.Minute, logger)

	idle := r.Open()
	mc.Advance(20 * time.Minute)
	active := r.Open()
	mc.Advance(15 * time.Minute)

	if n := r.Sweep(ctx); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if _, ok := r.Get(idle.ID); ok {
		t.Error("idle session should be gone")
	}
	if _, ok := r.Get(active.ID); !ok {
		t.Error("active session should survive")
	}

	mc.Advance(29 * time.Minute)
	if n := r.Sweep(ctx); n != 0 {
		t.Errorf("Get should have refreshed the session, got %d evictions", n)
	}

	r.Close(ctx, active.ID)
	r.Close(ctx, "unknown")
	if r.Len() != 0 {
		t.Errorf("expected no sessions, got %d", r.Len())
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"denied", &domain.DenyError{Reason: domain.DenySoldOut}, 422},
		{"backend", errors.New("connection refused"), 502},
		{"timeout", fmt.Errorf("get: %w: %w", domain.ErrTimeout, domain.ErrBackendUnavailable), 504},
		{"gateway", domain.ErrGatewayUnavailable, 502},
		{"indeterminate", domain.ErrConfirmationIndeterminate, 503},
		{"in progress", fmt.Errorf("order o1: %w", domain.ErrCheckoutInProgress), 409},
		{"not payable", domain.ErrOrderNotPayable, 422},
		{"missing order wins over backend", fmt.Errorf("get: %w: %w", domain.ErrNotFound, domain.ErrBackendUnavailable), 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	if got := statusForKind(domain.ErrorKindNone); got != 200 {
		t.Errorf("expected 200 for no error, got %d", got)
	}
}
