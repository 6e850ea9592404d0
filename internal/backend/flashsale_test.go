package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

func TestFlashSaleClient(t *testing.T) {
	zone := time.FixedZone("ICT", 7*60*60)

	t.Run("check product", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/flashSale/check-flashsale" || r.URL.Query().Get("productId") != "p 1" {
				t.Errorf("unexpected request %s", r.URL.String())
			}
			_, _ = w.Write([]byte(`{"message":"found","flashsaleStock":7}`))
		}))
		defer server.Close()

		stock, err := NewFlashSaleClient(server.URL, server.Client(), time.Second, zone).CheckProduct(context.Background(), "p 1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !stock.Found || stock.Stock != 7 {
			t.Errorf("unexpected stock %+v", stock)
		}
	})

	t.Run("product not in sale", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}))
		defer server.Close()

		stock, err := NewFlashSaleClient(server.URL, server.Client(), time.Second, zone).CheckProduct(context.Background(), "p")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stock.Found {
			t.Error("expected not found")
		}
	})

	t.Run("window keeps the calendar date in the sale zone", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/time-flashsale" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"payload":{"expirationTime":"2024-03-10T17:00:00.000Z","isOpenFlashsale":true}}`))
		}))
		defer server.Close()

		window, err := NewFlashSaleClient(server.URL, server.Client(), time.Second, zone).Window(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2024, 3, 10, 0, 0, 0, 0, zone)
		if !window.ExpirationDate.Equal(want) {
			t.Errorf("expected %s, got %s", want, window.ExpirationDate)
		}
		if !window.IsOpen {
			t.Error("expected open window")
		}
	})

	t.Run("window without expiration", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"payload":{"isOpenFlashsale":false}}`))
		}))
		defer server.Close()

		window, err := NewFlashSaleClient(server.URL, server.Client(), time.Second, zone).Window(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !window.ExpirationDate.IsZero() {
			t.Errorf("expected zero expiration, got %s", window.ExpirationDate)
		}
	})

	t.Run("garbled expiration", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"payload":{"expirationTime":"soon"}}`))
		}))
		defer server.Close()

		_, err := NewFlashSaleClient(server.URL, server.Client(), time.Second, zone).Window(context.Background())
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Errorf("expected ErrBackendUnavailable, got %v", err)
		}
	})
}
