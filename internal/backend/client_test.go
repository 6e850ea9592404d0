package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

func TestClient_Do(t *testing.T) {
	t.Run("sends JSON body and forwards shopper token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("Authorization") != "Bearer shopper-1" {
				t.Errorf("expected forwarded token, got %q", r.Header.Get("Authorization"))
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"data":"test"}` {
				t.Errorf("unexpected body: %s", body)
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		c := newClient(server.URL, server.Client(), time.Second)
		ctx := WithToken(context.Background(), "shopper-1")

		var out struct {
			OK bool `json:"ok"`
		}
		if err := c.do(ctx, http.MethodPost, "/create", map[string]string{"data": "test"}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.OK {
			t.Error("expected decoded response")
		}
	})

	t.Run("server error is backend unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		err := newClient(server.URL, server.Client(), time.Second).do(context.Background(), http.MethodGet, "/x", nil, nil)
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Errorf("expected ErrBackendUnavailable, got %v", err)
		}
		if domain.KindOf(err) != domain.ErrorKindBackendUnavailable {
			t.Errorf("expected BackendUnavailable kind, got %s", domain.KindOf(err))
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		err := newClient(server.URL, server.Client(), time.Second).do(context.Background(), http.MethodGet, "/x", nil, nil)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("slow backend times out", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		err := newClient(server.URL, server.Client(), 20*time.Millisecond).do(context.Background(), http.MethodGet, "/slow", nil, nil)
		if !errors.Is(err, domain.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if domain.KindOf(err) != domain.ErrorKindTimeout {
			t.Errorf("expected Timeout kind, got %s", domain.KindOf(err))
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newClient(server.URL, server.Client(), time.Second).do(ctx, http.MethodGet, "/x", nil, nil)
		if err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
