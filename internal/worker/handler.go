// Package worker settles orders once their checkout reaches a terminal
// state.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/messaging"
)

type OrderUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

type CheckoutHandler struct {
	orders OrderUpdater
	logger *slog.Logger
}

func NewCheckoutHandler(orders OrderUpdater, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{orders: orders, logger: logger}
}

// Handle marks paid orders COMPLETED. Failed payments leave the order
// WAITING so the shopper can pay again.
func (h *CheckoutHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.CheckoutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal checkout event: %w: %v", messaging.ErrPoison, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("checkout event without order id: %w", messaging.ErrPoison)
	}

	h.logger.InfoContext(ctx, "processing checkout event",
		"order_id", event.OrderID, "session_id", event.SessionID, "status", event.Status)

	switch event.Status {
	case domain.IPNStatusSuccess:
		if err := h.orders.UpdateStatus(ctx, event.OrderID, domain.OrderStatusCompleted); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("complete order %s: %w: %v", event.OrderID, messaging.ErrPoison, err)
			}
			h.logger.ErrorContext(ctx, "failed to complete order", "error", err, "order_id", event.OrderID)
			return fmt.Errorf("complete order %s: %w", event.OrderID, err)
		}
		h.logger.InfoContext(ctx, "order completed", "order_id", event.OrderID, "amount", event.Amount.String())

	case domain.IPNStatusFailed:
		h.logger.WarnContext(ctx, "payment failed, order left open for repayment", "order_id", event.OrderID)

	default:
		h.logger.InfoContext(ctx, "ignoring non-terminal checkout event", "order_id", event.OrderID, "status", event.Status)
	}

	return nil
}
