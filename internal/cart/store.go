// Package cart owns a shopper's cart state and orchestrates every mutation
// against the cart backend, the flash-sale service and the carrier.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/flashsale"
	"github.com/joao-fontenele/storefront-cart/internal/pricing"
	"github.com/joao-fontenele/storefront-cart/internal/telemetry"
)

type Backend interface {
	List(ctx context.Context) ([]domain.CartEntry, error)
	ListFlashSale(ctx context.Context) ([]domain.CartEntry, error)
	Add(ctx context.Context, p domain.Product) error
	Update(ctx context.Context, e domain.CartEntry) error
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) ([]domain.CartEntry, error)
}

type FlashSaleService interface {
	CheckProduct(ctx context.Context, productID string) (domain.FlashSaleStock, error)
	Window(ctx context.Context) (domain.FlashSaleWindow, error)
}

type ShippingEstimator interface {
	Estimate(ctx context.Context, entries []domain.CartEntry, to domain.Address) (domain.ShippingQuote, error)
}

type Deps struct {
	Backend     Backend
	FlashSale   FlashSaleService
	Shipping    ShippingEstimator
	Guard       *flashsale.Guard
	Calculator  *pricing.Calculator
	Logger      *slog.Logger
	Instruments *telemetry.Instruments
}

// Store is one shopper's cart. Operations never return errors: failures
// are logged, recorded in LastError and reported through the Notice, and
// leave entries and totals as they were.
//
// The store does not serialize mutations on its own. Callers that can race
// take a Claim first.
type Store struct {
	mu      sync.Mutex
	state   domain.CartState
	claimed bool

	backend     Backend
	flashSale   FlashSaleService
	shipping    ShippingEstimator
	guard       *flashsale.Guard
	calc        *pricing.Calculator
	logger      *slog.Logger
	instruments *telemetry.Instruments
}

func NewStore(deps Deps) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:     deps.Backend,
		flashSale:   deps.FlashSale,
		shipping:    deps.Shipping,
		guard:       deps.Guard,
		calc:        deps.Calculator,
		logger:      logger,
		instruments: deps.Instruments,
	}
}

func (s *Store) Snapshot() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Close drops all cart state at the end of the shopper's session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.CartState{}
}

func (s *Store) AddRegularItem(ctx context.Context, p domain.Product) Notice {
	snapshot := s.begin()

	p.IsFlashSale = false
	if err := validateCandidate(p); err != nil {
		return s.finish(ctx, OpAddItem, err, nil)
	}

	var cartCheck, candidateCheck domain.FlashSaleStock
	g, gctx := errgroup.WithContext(ctx)
	if !snapshot.IsEmpty() {
		first := snapshot.Entries[0].ProductID
		g.Go(func() error {
			var err error
			cartCheck, err = s.flashSale.CheckProduct(gctx, first)
			return err
		})
	}
	g.Go(func() error {
		var err error
		candidateCheck, err = s.flashSale.CheckProduct(gctx, p.ProductID)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.finish(ctx, OpAddItem, fmt.Errorf("check flash-sale flags: %w", err), nil)
	}

	if err := s.guard.CanAddRegular(cartCheck.Found, candidateCheck.Found).Err(); err != nil {
		return s.finish(ctx, OpAddItem, err, nil)
	}

	return s.persist(ctx, OpAddItem, p)
}

func (s *Store) AddFlashSaleItem(ctx context.Context, p domain.Product) Notice {
	snapshot := s.begin()

	p.IsFlashSale = true
	if err := validateCandidate(p); err != nil {
		return s.finish(ctx, OpAddFlashSaleItem, err, nil)
	}

	var stock domain.FlashSaleStock
	var window domain.FlashSaleWindow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stock, err = s.flashSale.CheckProduct(gctx, p.ProductID)
		return err
	})
	g.Go(func() error {
		var err error
		window, err = s.flashSale.Window(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.finish(ctx, OpAddFlashSaleItem, fmt.Errorf("fetch flash-sale stock and window: %w", err), nil)
	}

	if err := s.guard.CanAdd(p, snapshot.Entries, window, stock.Stock).Err(); err != nil {
		return s.finish(ctx, OpAddFlashSaleItem, err, nil)
	}

	return s.persist(ctx, OpAddFlashSaleItem, p)
}

func (s *Store) persist(ctx context.Context, op Operation, p domain.Product) Notice {
	if err := s.backend.Add(ctx, p); err != nil {
		return s.finish(ctx, op, fmt.Errorf("add %s: %w", p.ProductID, err), nil)
	}
	entries, err := s.backend.List(ctx)
	if err != nil {
		return s.finish(ctx, op, fmt.Errorf("reload cart: %w", err), nil)
	}
	return s.finish(ctx, op, nil, s.replace(entries))
}

// Increase bumps an entry's quantity locally without calling the backend.
func (s *Store) Increase(ctx context.Context, entryID string) Notice {
	return s.local(ctx, OpIncrease, func(st domain.CartState) (domain.CartState, error) {
		return s.calc.RecomputeOnIncrease(st, entryID)
	})
}

// Decrease lowers an entry's quantity locally, dropping the entry at zero.
func (s *Store) Decrease(ctx context.Context, entryID string) Notice {
	return s.local(ctx, OpDecrease, func(st domain.CartState) (domain.CartState, error) {
		return s.calc.RecomputeOnDecrease(st, entryID)
	})
}

func (s *Store) local(ctx context.Context, op Operation, step func(domain.CartState) (domain.CartState, error)) Notice {
	s.mu.Lock()
	next, err := step(s.state)
	if err == nil {
		next.Drifted = true
		next.Quote = nil
		next.ShippingUnavailable = false
		s.state = next
	}
	s.state.LastError = domain.KindOf(err)
	s.mu.Unlock()

	return s.report(ctx, op, err)
}

func (s *Store) Remove(ctx context.Context, entryID string) Notice {
	snapshot := s.begin()

	entry, ok := snapshot.Find(entryID)
	if !ok {
		return s.finish(ctx, OpRemove, fmt.Errorf("remove %q: %w", entryID, domain.ErrEntryNotFound), nil)
	}
	if err := s.backend.Remove(ctx, entry.ProductID); err != nil {
		return s.finish(ctx, OpRemove, fmt.Errorf("remove %s: %w", entry.ProductID, err), nil)
	}
	entries, err := s.backend.List(ctx)
	if err != nil {
		return s.finish(ctx, OpRemove, fmt.Errorf("reload cart: %w", err), nil)
	}
	return s.finish(ctx, OpRemove, nil, s.replace(entries))
}

// ApplyCoupon is local only. An unrecognized code changes nothing and is
// not reported as an error.
func (s *Store) ApplyCoupon(ctx context.Context, code string) Notice {
	s.mu.Lock()
	current := pricing.Totals{Subtotal: s.state.Subtotal, Shipping: s.state.Shipping, Total: s.state.Total}
	next, recognized := s.calc.ApplyCoupon(current, code, s.state.IsEmpty())
	if recognized {
		s.state.Coupon = code
		s.state.Subtotal, s.state.Shipping, s.state.Total = next.Subtotal, next.Shipping, next.Total
	}
	s.state.LastError = domain.ErrorKindNone
	s.mu.Unlock()

	n := s.report(ctx, OpApplyCoupon, nil)
	if !recognized {
		n.Message = ""
	}
	return n
}

func (s *Store) Reset(ctx context.Context) Notice {
	s.begin()

	entries, err := s.backend.Clear(ctx)
	if err != nil {
		return s.finish(ctx, OpReset, fmt.Errorf("clear cart: %w", err), nil)
	}
	return s.finish(ctx, OpReset, nil, func(st *domain.CartState) {
		st.Coupon = ""
		s.replace(entries)(st)
	})
}

func (s *Store) Refresh(ctx context.Context) Notice {
	return s.reload(ctx, OpRefresh, s.backend.List)
}

func (s *Store) RefreshFlashSale(ctx context.Context) Notice {
	return s.reload(ctx, OpRefreshFlashSale, s.backend.ListFlashSale)
}

func (s *Store) reload(ctx context.Context, op Operation, list func(context.Context) ([]domain.CartEntry, error)) Notice {
	s.begin()

	entries, err := list(ctx)
	if err != nil {
		return s.finish(ctx, op, fmt.Errorf("load cart: %w", err), nil)
	}
	return s.finish(ctx, op, nil, s.replace(entries))
}

// Sync writes every local quantity to the backend and adopts the backend's
// payload. It reconciles drift left by Increase and Decrease.
func (s *Store) Sync(ctx context.Context) Notice {
	snapshot := s.begin()

	for _, e := range snapshot.Entries {
		if err := s.backend.Update(ctx, e); err != nil {
			return s.finish(ctx, OpSync, fmt.Errorf("update %s: %w", e.ProductID, err), nil)
		}
	}
	entries, err := s.backend.List(ctx)
	if err != nil {
		return s.finish(ctx, OpSync, fmt.Errorf("reload cart: %w", err), nil)
	}
	return s.finish(ctx, OpSync, nil, s.replace(entries))
}

// QuoteShipping asks the carrier for a live fee. On failure the cart stays
// valid and shipping is shown as unavailable.
func (s *Store) QuoteShipping(ctx context.Context, to domain.Address) Notice {
	snapshot := s.begin()

	quote, err := s.shipping.Estimate(ctx, snapshot.Entries, to)
	if err != nil {
		return s.finish(ctx, OpQuoteShipping, err, func(st *domain.CartState) {
			st.Quote = nil
			st.ShippingUnavailable = true
		})
	}
	return s.finish(ctx, OpQuoteShipping, nil, func(st *domain.CartState) {
		st.Quote = &quote
		st.ShippingUnavailable = false
	})
}

// Claim reserves the store for one mutation. It fails while another claim
// is held or an operation is loading. release ends the claim.
func (s *Store) Claim() (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed || s.state.Loading {
		return nil, false
	}
	s.claimed = true
	return func() {
		s.mu.Lock()
		s.claimed = false
		s.mu.Unlock()
	}, true
}

func (s *Store) begin() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	return s.state.Clone()
}

// finish applies fn, which runs even when err is set so that failures can
// record derived flags. fn must not touch entries or totals on failure.
func (s *Store) finish(ctx context.Context, op Operation, err error, fn func(*domain.CartState)) Notice {
	s.mu.Lock()
	if fn != nil {
		fn(&s.state)
	}
	s.state.Loading = false
	s.state.LastError = domain.KindOf(err)
	s.mu.Unlock()

	return s.report(ctx, op, err)
}

func (s *Store) report(ctx context.Context, op Operation, err error) Notice {
	n := newNotice(op, err)

	var deny *domain.DenyError
	switch {
	case err == nil:
		s.instruments.CartMutation(ctx, string(op), "success")
	case errors.As(err, &deny):
		s.logger.InfoContext(ctx, "cart operation denied", "operation", op, "reason", deny.Reason)
		s.instruments.FlashSaleDenial(ctx, string(deny.Reason))
		s.instruments.CartMutation(ctx, string(op), "denied")
	default:
		s.logger.ErrorContext(ctx, "cart operation failed", "operation", op, "error", err, "kind", n.Kind)
		s.instruments.CartMutation(ctx, string(op), "failed")
	}
	return n
}

// replace adopts the backend's entries and recomputes every derived field.
func (s *Store) replace(entries []domain.CartEntry) func(*domain.CartState) {
	return func(st *domain.CartState) {
		totals := s.calc.Recompute(entries, st.Coupon)
		st.Entries = entries
		st.TotalItem = pricing.ItemCount(entries)
		st.Subtotal, st.Shipping, st.Total = totals.Subtotal, totals.Shipping, totals.Total
		st.Drifted = false
		st.Quote = nil
		st.ShippingUnavailable = false
	}
}

func validateCandidate(p domain.Product) error {
	if p.ProductID == "" || p.Quantity <= 0 || p.UnitPrice.IsNegative() {
		return &domain.DenyError{Reason: domain.DenyInvalidCandidate}
	}
	return nil
}
