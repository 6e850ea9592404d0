package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

const cartPayload = `{"payload":[
	{"id":"e1","product":{"productId":"p1","quantity":2},"productDetail":{"price":"10.00","discount":10,"width":3,"height":4,"length":5,"weight":2}},
	{"id":"e2","product":{"productId":"p2","quantity":1},"productDetail":{"price":4.5,"discount":0,"width":1,"height":1,"length":1,"weight":1}}
]}`

func TestCartClient(t *testing.T) {
	t.Run("lists entries from payload envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/cart" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			_, _ = w.Write([]byte(cartPayload))
		}))
		defer server.Close()

		entries, err := NewCartClient(server.URL, server.Client(), time.Second).List(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].ID != "e1" || entries[0].ProductID != "p1" || entries[0].Quantity != 2 {
			t.Errorf("unexpected first entry %+v", entries[0])
		}
		if !entries[0].UnitPrice.Equal(decimal.RequireFromString("10")) || entries[0].DiscountPercent != 10 {
			t.Errorf("unexpected pricing %+v", entries[0])
		}
		if entries[0].Dimensions.Weight != 2 || entries[0].Dimensions.Length != 5 {
			t.Errorf("unexpected dimensions %+v", entries[0].Dimensions)
		}
		if !entries[1].UnitPrice.Equal(decimal.RequireFromString("4.5")) {
			t.Errorf("expected numeric price to decode, got %s", entries[1].UnitPrice)
		}
	})

	t.Run("flash-sale cart path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/cart/get-cart-flashsale" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"payload":[]}`))
		}))
		defer server.Close()

		entries, err := NewCartClient(server.URL, server.Client(), time.Second).ListFlashSale(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty cart, got %v", entries)
		}
	})

	t.Run("add posts product line", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/cart" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var line cartLine
			if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if line.ProductID != "p9" || line.Quantity != 3 {
				t.Errorf("unexpected line %+v", line)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		err := NewCartClient(server.URL, server.Client(), time.Second).Add(context.Background(), domain.Product{ProductID: "p9", Quantity: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("remove escapes product id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.EscapedPath() != "/cart/a%2Fb" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.EscapedPath())
			}
		}))
		defer server.Close()

		if err := NewCartClient(server.URL, server.Client(), time.Second).Remove(context.Background(), "a/b"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("malformed entry is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"payload":[{"id":"e1","product":{"productId":"p1","quantity":0},"productDetail":{"price":"1"}}]}`))
		}))
		defer server.Close()

		_, err := NewCartClient(server.URL, server.Client(), time.Second).List(context.Background())
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Errorf("expected ErrBackendUnavailable, got %v", err)
		}
	})

	t.Run("non-numeric price is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"payload":[{"id":"e1","product":{"productId":"p1","quantity":1},"productDetail":{"price":"NaN"}}]}`))
		}))
		defer server.Close()

		_, err := NewCartClient(server.URL, server.Client(), time.Second).List(context.Background())
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Errorf("expected ErrBackendUnavailable, got %v", err)
		}
	})

	t.Run("clear adopts returned payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/cart" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"payload":[]}`))
		}))
		defer server.Close()

		entries, err := NewCartClient(server.URL, server.Client(), time.Second).Clear(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty payload, got %v", entries)
		}
	})
}
