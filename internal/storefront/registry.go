package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront-cart/internal/cart"
	"github.com/joao-fontenele/storefront-cart/internal/checkout"
	"github.com/joao-fontenele/storefront-cart/internal/clock"
)

// Session is everything the storefront keeps for one shopper.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Initiator

	lastSeen time.Time
}

// SessionFactory builds the per-shopper components of a new session.
type SessionFactory func() (*cart.Store, *checkout.Initiator)

// Registry maps session ids to live sessions and evicts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	factory SessionFactory
	clock   clock.Clock
	idleTTL time.Duration
	logger  *slog.Logger
}

func NewRegistry(factory SessionFactory, c clock.Clock, idleTTL time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		clock:    c,
		idleTTL:  idleTTL,
		logger:   logger,
	}
}

// Open starts a new session.
func (r *Registry) Open() *Session {
	store, initiator := r.factory()
	s := &Session{
		ID:       uuid.NewString(),
		Cart:     store,
		Checkout: initiator,
		lastSeen: r.clock.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.clock.Now()
	}
	return s, ok
}

// Close tears a session down. Unknown ids are ignored.
func (r *Registry) Close(ctx context.Context, id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		teardown(ctx, s)
	}
}

// Sweep closes every session idle for longer than the idle TTL and reports
// how many it closed.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		teardown(ctx, s)
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logger.InfoContext(ctx, "idle sessions evicted", "count", n)
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func teardown(ctx context.Context, s *Session) {
	s.Cart.Close()
	s.Checkout.Close(ctx)
}
