package checkout

import (
	"net/http"
	"time"
)

// OrderCookie carries the order being paid across the gateway redirect.
const OrderCookie = "orderId"

func SetOrderCookie(w http.ResponseWriter, orderID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     OrderCookie,
		Value:    orderID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearOrderCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     OrderCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func OrderIDFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(OrderCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
