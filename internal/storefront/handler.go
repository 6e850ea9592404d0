// Package storefront exposes the cart and checkout engine over HTTP, one
// session per shopper.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/backend"
	"github.com/joao-fontenele/storefront-cart/internal/cart"
	"github.com/joao-fontenele/storefront-cart/internal/checkout"
	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/pricing"
	"github.com/joao-fontenele/storefront-cart/internal/telemetry"
)

const sessionCookie = "sid"

type OrderLookup interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

type Handler struct {
	registry  *Registry
	orders    OrderLookup
	cookieTTL time.Duration
	logger    *slog.Logger
}

func NewHandler(registry *Registry, orders OrderLookup, orderCookieTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		orders:    orders,
		cookieTTL: orderCookieTTL,
		logger:    logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(h.shopper(h.HandleGetCart)))
	mux.HandleFunc("POST /cart/refresh", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleRefresh))))
	mux.HandleFunc("POST /cart/flashsale/refresh", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleRefreshFlashSale))))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleAddItem))))
	mux.HandleFunc("POST /cart/flashsale/items", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleAddFlashSaleItem))))
	mux.HandleFunc("POST /cart/items/{entryId}/increase", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleIncrease))))
	mux.HandleFunc("POST /cart/items/{entryId}/decrease", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleDecrease))))
	mux.HandleFunc("DELETE /cart/items/{entryId}", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleRemove))))
	mux.HandleFunc("POST /cart/coupon", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleApplyCoupon))))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleReset))))
	mux.HandleFunc("POST /cart/sync", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleSync))))
	mux.HandleFunc("POST /cart/shipping-quote", telemetry.WithHTTPRoute(h.shopper(h.mutation(h.HandleQuoteShipping))))
	mux.HandleFunc("POST /checkout/orders/{orderId}", telemetry.WithHTTPRoute(h.shopper(h.HandleInitiate)))
	mux.HandleFunc("GET /checkout/return", telemetry.WithHTTPRoute(h.shopper(h.HandleReturn)))
	mux.HandleFunc("GET /checkout", telemetry.WithHTTPRoute(h.shopper(h.HandleCheckoutStatus)))
	mux.HandleFunc("POST /checkout/reset", telemetry.WithHTTPRoute(h.shopper(h.HandleCheckoutReset)))
	mux.HandleFunc("DELETE /session", telemetry.WithHTTPRoute(h.HandleLogout))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

// shopper resolves the caller's session, opening one when the sid cookie is
// missing or stale, and forwards the shopper's bearer token to outbound
// calls.
func (h *Handler) shopper(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s *Session
		if c, err := r.Cookie(sessionCookie); err == nil {
			s, _ = h.registry.Get(c.Value)
		}
		if s == nil {
			s = h.registry.Open()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			h.logger.InfoContext(r.Context(), "session opened", "session_id", s.ID)
		}

		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
			r = r.WithContext(backend.WithToken(r.Context(), token))
		}
		next(w, r, s)
	}
}

// mutation refuses to start a cart operation while another is running.
func (h *Handler) mutation(next sessionHandler) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, s *Session) {
		release, ok := s.Cart.Claim()
		if !ok {
			h.writeError(w, http.StatusConflict, "cart operation in progress")
			return
		}
		defer release()
		next(w, r, s)
	}
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeJSON(w, http.StatusOK, newCartView(s.Cart.Snapshot()))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.Refresh(r.Context()))
}

func (h *Handler) HandleRefreshFlashSale(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.RefreshFlashSale(r.Context()))
}

type addItemRequest struct {
	ProductID       string            `json:"product_id"`
	Quantity        int               `json:"quantity"`
	UnitPrice       string            `json:"unit_price"`
	DiscountPercent int               `json:"discount_percent"`
	Dimensions      domain.Dimensions `json:"dimensions"`
}

func (req addItemRequest) product() (domain.Product, error) {
	p := domain.Product{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		DiscountPercent: req.DiscountPercent,
		Dimensions:      req.Dimensions,
	}
	if req.UnitPrice != "" {
		price, err := pricing.ParseAmount(req.UnitPrice)
		if err != nil {
			return domain.Product{}, err
		}
		p.UnitPrice = price
	}
	return p, nil
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return domain.Product{}, false
	}
	p, err := req.product()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid unit price")
		return domain.Product{}, false
	}
	return p, true
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	h.writeNotice(w, s, s.Cart.AddRegularItem(r.Context(), p))
}

func (h *Handler) HandleAddFlashSaleItem(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	h.writeNotice(w, s, s.Cart.AddFlashSaleItem(r.Context(), p))
}

func (h *Handler) HandleIncrease(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.Increase(r.Context(), r.PathValue("entryId")))
}

func (h *Handler) HandleDecrease(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.Decrease(r.Context(), r.PathValue("entryId")))
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.Remove(r.Context(), r.PathValue("entryId")))
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleApplyCoupon(w http.ResponseWriter, r *http.Request, s *Session) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.writeNotice(w, s, s.Cart.ApplyCoupon(r.Context(), strings.TrimSpace(req.Code)))
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.Reset(r.Context()))
}

func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeNotice(w, s, s.Cart.Sync(r.Context()))
}

func (h *Handler) HandleQuoteShipping(w http.ResponseWriter, r *http.Request, s *Session) {
	var to domain.Address
	if err := json.NewDecoder(r.Body).Decode(&to); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if to.DistrictID <= 0 || to.WardCode == "" {
		h.writeError(w, http.StatusBadRequest, "district_id and ward_code are required")
		return
	}
	h.writeNotice(w, s, s.Cart.QuoteShipping(r.Context(), to))
}

type initiateRequest struct {
	BankCode string `json:"bank_code"`
}

type initiateResponse struct {
	RedirectURL string                `json:"redirect_url"`
	Session     domain.PaymentSession `json:"session"`
}

func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request, s *Session) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req initiateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load order", "error", err, "order_id", orderID)
		h.writeFailure(w, err)
		return
	}

	session, err := s.Checkout.Initiate(r.Context(), order, req.BankCode)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "checkout initiation failed", "error", err, "order_id", orderID)
		h.writeFailure(w, err)
		return
	}

	checkout.SetOrderCookie(w, order.ID, h.cookieTTL)
	h.logger.InfoContext(r.Context(), "checkout initiated", "order_id", order.ID, "session_id", session.ID)
	h.writeJSON(w, http.StatusOK, initiateResponse{RedirectURL: session.GatewayRedirectURL, Session: session})
}

type returnResponse struct {
	OrderID   string           `json:"order_id"`
	State     checkout.State   `json:"state"`
	IPNStatus domain.IPNStatus `json:"ipn_status"`
}

// HandleReturn is where the gateway sends the shopper back. The machine is
// restored from the order cookie when this session has not seen the order.
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request, s *Session) {
	orderID, ok := checkout.OrderIDFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "no order awaiting payment")
		return
	}

	restored, err := s.Checkout.Restore(r.Context(), orderID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to restore checkout", "error", err, "order_id", orderID)
		h.writeFailure(w, err)
		return
	}
	if restored.Terminal() {
		checkout.ClearOrderCookie(w)
		h.writeJSON(w, http.StatusOK, returnResponse{OrderID: orderID, State: s.Checkout.Status().State, IPNStatus: restored.IPNStatus})
		return
	}

	status, err := s.Checkout.Confirm(r.Context(), r.URL.Query())
	if err != nil && !errors.Is(err, domain.ErrConfirmationIndeterminate) {
		h.logger.ErrorContext(r.Context(), "payment confirmation failed", "error", err, "order_id", orderID)
		h.writeFailure(w, err)
		return
	}

	resp := returnResponse{OrderID: orderID, State: s.Checkout.Status().State, IPNStatus: status}
	if err != nil {
		h.writeJSON(w, errorStatus(err), resp)
		return
	}

	checkout.ClearOrderCookie(w)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCheckoutStatus(w http.ResponseWriter, r *http.Request, s *Session) {
	h.writeJSON(w, http.StatusOK, s.Checkout.Status())
}

func (h *Handler) HandleCheckoutReset(w http.ResponseWriter, r *http.Request, s *Session) {
	if err := s.Checkout.Reset(r.Context()); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Checkout.Status())
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.registry.Close(r.Context(), c.Value)
		h.logger.InfoContext(r.Context(), "session closed", "session_id", c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	checkout.ClearOrderCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeNotice(w http.ResponseWriter, s *Session, n cart.Notice) {
	status := http.StatusOK
	if !n.Success {
		status = statusForKind(n.Kind)
	}
	h.writeJSON(w, status, mutationResponse{State: newCartView(s.Cart.Snapshot()), Notice: n})
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	message := http.StatusText(status)
	switch {
	case errors.Is(err, domain.ErrCheckoutInProgress):
		message = "checkout already in progress"
	case errors.Is(err, domain.ErrOrderNotPayable):
		message = "order cannot be paid online"
	case errors.Is(err, domain.ErrNotFound):
		message = "order not found"
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
