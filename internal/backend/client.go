// Package backend holds the JSON-over-HTTP adapters for the storefront's
// collaborators: the cart backend, the flash-sale service and the orders
// service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

type tokenKey struct{}

// WithToken attaches the shopper's bearer token so outbound calls act on
// the shopper's behalf.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func newClient(baseURL string, hc *http.Client, timeout time.Duration) *client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &client{
		baseURL: baseURL,
		http:    hc,
		timeout: timeout,
	}
}

// do sends body as JSON and decodes the response into out when out is
// non-nil. Every failure is reported as ErrBackendUnavailable; deadlines
// additionally match ErrTimeout and 404 matches ErrNotFound.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrTimeout, domain.ErrBackendUnavailable)
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrNotFound, domain.ErrBackendUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w: status %d", method, path, domain.ErrBackendUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w: %v", method, path, domain.ErrBackendUnavailable, err)
	}
	return nil
}
