package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

func TestOrdersClient(t *testing.T) {
	t.Run("get order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders-admin/o-1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"payload":{"_id":"o-1","totalPrice":42.5,"status":"WAITING","paymentType":"CREDIT_CARD","buyType":"ONLINE"}}`))
		}))
		defer server.Close()

		order, err := NewOrdersClient(server.URL, server.Client(), time.Second).GetOrder(context.Background(), "o-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.ID != "o-1" || order.TotalPrice.String() != "42.5" {
			t.Errorf("unexpected order %+v", order)
		}
		if !order.CanRepay() {
			t.Error("expected order to be repayable")
		}
	})

	t.Run("update status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch || r.URL.Path != "/orders/o-1/status" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["status"] != string(domain.OrderStatusCompleted) {
				t.Errorf("unexpected status %q", body["status"])
			}
		}))
		defer server.Close()

		err := NewOrdersClient(server.URL, server.Client(), time.Second).UpdateStatus(context.Background(), "o-1", domain.OrderStatusCompleted)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
