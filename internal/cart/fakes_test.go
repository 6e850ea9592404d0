package cart

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/clock"
	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/flashsale"
	"github.com/joao-fontenele/storefront-cart/internal/pricing"
)

type fakeBackend struct {
	mu      sync.Mutex
	entries []domain.CartEntry
	catalog map[string]domain.CartEntry

	addErr    error
	listErr   error
	removeErr error
	clearErr  error
	updateErr error

	calls   []string
	updated []domain.CartEntry
}

func newFakeBackend(entries ...domain.CartEntry) *fakeBackend {
	return &fakeBackend{entries: entries, catalog: map[string]domain.CartEntry{}}
}

func (b *fakeBackend) record(call string) {
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) List(ctx context.Context) ([]domain.CartEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("list")
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]domain.CartEntry(nil), b.entries...), nil
}

func (b *fakeBackend) ListFlashSale(ctx context.Context) ([]domain.CartEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("list_flash_sale")
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []domain.CartEntry
	for _, e := range b.entries {
		if e.IsFlashSale {
			out = append(out, e)
		}
	}
	return out, nil
}

func (b *fakeBackend) Add(ctx context.Context, p domain.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("add")
	if b.addErr != nil {
		return b.addErr
	}
	entry, ok := b.catalog[p.ProductID]
	if !ok {
		entry = domain.CartEntry{ProductID: p.ProductID, UnitPrice: p.UnitPrice, Dimensions: p.Dimensions}
	}
	entry.ID = uuid.NewString()
	entry.Quantity = p.Quantity
	entry.IsFlashSale = p.IsFlashSale
	b.entries = append(b.entries, entry)
	return nil
}

func (b *fakeBackend) Update(ctx context.Context, e domain.CartEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("update")
	if b.updateErr != nil {
		return b.updateErr
	}
	b.updated = append(b.updated, e)
	for i := range b.entries {
		if b.entries[i].ProductID == e.ProductID {
			b.entries[i].Quantity = e.Quantity
		}
	}
	return nil
}

func (b *fakeBackend) Remove(ctx context.Context, productID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("remove:" + productID)
	if b.removeErr != nil {
		return b.removeErr
	}
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.ProductID != productID {
			kept = append(kept, e)
		}
	}
	b.entries = kept
	return nil
}

func (b *fakeBackend) Clear(ctx context.Context) ([]domain.CartEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("clear")
	if b.clearErr != nil {
		return nil, b.clearErr
	}
	b.entries = nil
	return []domain.CartEntry{}, nil
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type fakeFlashSale struct {
	mu      sync.Mutex
	stock   map[string]domain.FlashSaleStock
	window  domain.FlashSaleWindow
	err     error
	checked []string

	// rendezvous, when set, makes CheckProduct and Window each wait for
	// the other to have started.
	rendezvous   bool
	checkStarted chan struct{}
	windowStart  chan struct{}
}

func newFakeFlashSale() *fakeFlashSale {
	return &fakeFlashSale{
		stock:        map[string]domain.FlashSaleStock{},
		checkStarted: make(chan struct{}),
		windowStart:  make(chan struct{}),
	}
}

func (f *fakeFlashSale) CheckProduct(ctx context.Context, productID string) (domain.FlashSaleStock, error) {
	f.mu.Lock()
	f.checked = append(f.checked, productID)
	rendezvous := f.rendezvous
	f.mu.Unlock()

	if rendezvous {
		close(f.checkStarted)
		select {
		case <-f.windowStart:
		case <-time.After(time.Second):
			return domain.FlashSaleStock{}, context.DeadlineExceeded
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.FlashSaleStock{}, f.err
	}
	return f.stock[productID], nil
}

func (f *fakeFlashSale) Window(ctx context.Context) (domain.FlashSaleWindow, error) {
	f.mu.Lock()
	rendezvous := f.rendezvous
	f.mu.Unlock()

	if rendezvous {
		close(f.windowStart)
		select {
		case <-f.checkStarted:
		case <-time.After(time.Second):
			return domain.FlashSaleWindow{}, context.DeadlineExceeded
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.FlashSaleWindow{}, f.err
	}
	return f.window, nil
}

func (f *fakeFlashSale) Checked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checked...)
}

type fakeShipping struct {
	quote domain.ShippingQuote
	err   error
	seen  []domain.CartEntry
}

func (f *fakeShipping) Estimate(ctx context.Context, entries []domain.CartEntry, to domain.Address) (domain.ShippingQuote, error) {
	f.seen = entries
	if f.err != nil {
		return domain.ShippingQuote{}, f.err
	}
	return f.quote, nil
}

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	store     *Store
	backend   *fakeBackend
	flashSale *fakeFlashSale
	shipping  *fakeShipping
}

func newHarness(entries ...domain.CartEntry) *harness {
	h := &harness{
		backend:   newFakeBackend(entries...),
		flashSale: newFakeFlashSale(),
		shipping:  &fakeShipping{},
	}
	h.store = NewStore(Deps{
		Backend:    h.backend,
		FlashSale:  h.flashSale,
		Shipping:   h.shipping,
		Guard:      flashsale.NewGuard(clock.NewMockClock(testNow), time.UTC),
		Calculator: pricing.NewCalculator(decimal.NewFromInt(5)),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

// loaded returns a harness whose store has already adopted the backend's
// entries.
func loaded(entries ...domain.CartEntry) *harness {
	h := newHarness(entries...)
	h.store.Refresh(context.Background())
	h.backend.calls = nil
	return h
}

func entry(id, productID string, price string, qty int) domain.CartEntry {
	return domain.CartEntry{
		ID:        id,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}
