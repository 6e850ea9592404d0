// Package checkout drives a shopper from a placed order to a confirmed
// online payment.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-cart/internal/clock"
	"github.com/joao-fontenele/storefront-cart/internal/domain"
	"github.com/joao-fontenele/storefront-cart/internal/telemetry"
)

type State string

const (
	StateIdle       State = "IDLE"
	StateSubmitting State = "SUBMITTING"
	StateRedirected State = "REDIRECTED"
	StateConfirming State = "CONFIRMING"
	StateConfirmed  State = "CONFIRMED"
	StateFailed     State = "FAILED"
)

// SubmitPolicy decides what a second Initiate does while one is in flight.
type SubmitPolicy string

const (
	// PolicyReject fails the second call with ErrCheckoutInProgress.
	PolicyReject SubmitPolicy = "reject"
	// PolicyQueue makes a second call for the same order wait for the
	// in-flight submission and share its outcome.
	PolicyQueue SubmitPolicy = "queue"
)

type Gateway interface {
	CreatePaymentURL(ctx context.Context, pr domain.PaymentRequest) (string, error)
	CheckIPN(ctx context.Context, query url.Values) (domain.IPNResult, error)
}

type SessionStore interface {
	Save(ctx context.Context, s *domain.PaymentSession) error
	// LatestByOrder returns nil without error when the order has no session.
	LatestByOrder(ctx context.Context, orderID string) (*domain.PaymentSession, error)
}

type Locker interface {
	// Acquire returns ErrCheckoutInProgress when another holder owns the
	// order's lock.
	Acquire(ctx context.Context, orderID string) (release func(context.Context) error, err error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Options struct {
	Policy       SubmitPolicy
	ExchangeRate decimal.Decimal
	BankCode     string
	Language     string
	ReturnURL    string
}

// Deps lists the initiator's collaborators. Sessions, Locker and Publisher
// are optional.
type Deps struct {
	Gateway     Gateway
	Sessions    SessionStore
	Locker      Locker
	Publisher   Publisher
	Clock       clock.Clock
	Logger      *slog.Logger
	Instruments *telemetry.Instruments
}

type Status struct {
	State     State                  `json:"state"`
	Session   *domain.PaymentSession `json:"session,omitempty"`
	LastError domain.ErrorKind       `json:"last_error,omitempty"`
}

type submission struct {
	orderID string
	done    chan struct{}
	session domain.PaymentSession
	err     error
}

// Initiator is one shopper's checkout state machine.
type Initiator struct {
	opts Options
	deps Deps

	mu       sync.Mutex
	state    State
	session  *domain.PaymentSession
	lastErr  domain.ErrorKind
	inflight *submission
	release  func(context.Context) error

	// gen is bumped by Close. Calls that dropped mu around a gateway round
	// trip compare it to detect a teardown in between.
	gen uint64
}

func NewInitiator(opts Options, deps Deps) *Initiator {
	if opts.Policy == "" {
		opts.Policy = PolicyReject
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Initiator{opts: opts, deps: deps, state: StateIdle}
}

func (i *Initiator) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	st := Status{State: i.state, LastError: i.lastErr}
	if i.session != nil {
		s := *i.session
		st.Session = &s
	}
	return st
}

// Amount converts an order total into whole units of the settlement
// currency.
func (i *Initiator) Amount(total decimal.Decimal) decimal.Decimal {
	return total.Mul(i.opts.ExchangeRate).Round(0)
}

// Initiate asks the gateway for a redirect URL for order. It is only
// accepted from IDLE; what happens while another submission is in flight
// depends on the submit policy.
func (i *Initiator) Initiate(ctx context.Context, order domain.Order, bankCode string) (domain.PaymentSession, error) {
	if !order.CanRepay() {
		return domain.PaymentSession{}, fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotPayable)
	}

	i.mu.Lock()
	switch i.state {
	case StateIdle:
	case StateSubmitting:
		sub := i.inflight
		i.mu.Unlock()
		if i.opts.Policy == PolicyQueue && sub != nil && sub.orderID == order.ID {
			return i.await(ctx, sub)
		}
		return domain.PaymentSession{}, fmt.Errorf("order %s: %w", order.ID, domain.ErrCheckoutInProgress)
	case StateRedirected, StateConfirming:
		if i.opts.Policy == PolicyQueue && i.session != nil && i.session.OrderID == order.ID {
			s := *i.session
			i.mu.Unlock()
			return s, nil
		}
		i.mu.Unlock()
		return domain.PaymentSession{}, fmt.Errorf("order %s: %w", order.ID, domain.ErrCheckoutInProgress)
	default:
		state := i.state
		i.mu.Unlock()
		return domain.PaymentSession{}, fmt.Errorf("initiate from %s: %w", state, domain.ErrInvalidTransition)
	}

	sub := &submission{orderID: order.ID, done: make(chan struct{})}
	i.inflight = sub
	i.transition(ctx, StateSubmitting)
	gen := i.gen
	i.mu.Unlock()

	sub.session, sub.err = i.submit(ctx, order, bankCode, gen)
	close(sub.done)
	return sub.session, sub.err
}

func (i *Initiator) await(ctx context.Context, sub *submission) (domain.PaymentSession, error) {
	select {
	case <-sub.done:
		return sub.session, sub.err
	case <-ctx.Done():
		return domain.PaymentSession{}, ctx.Err()
	}
}

func (i *Initiator) submit(ctx context.Context, order domain.Order, bankCode string, gen uint64) (domain.PaymentSession, error) {
	var release func(context.Context) error
	if i.deps.Locker != nil {
		r, err := i.deps.Locker.Acquire(ctx, order.ID)
		if err != nil {
			i.mu.Lock()
			if i.gen == gen {
				i.inflight = nil
				i.lastErr = domain.KindOf(err)
				i.transition(ctx, StateIdle)
			}
			i.mu.Unlock()
			return domain.PaymentSession{}, fmt.Errorf("lock order %s: %w", order.ID, err)
		}
		release = r
	}

	if bankCode == "" {
		bankCode = i.opts.BankCode
	}
	now := i.deps.Clock.Now()
	session := domain.PaymentSession{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Amount:    i.Amount(order.TotalPrice),
		BankCode:  bankCode,
		Language:  i.opts.Language,
		ReturnURL: i.opts.ReturnURL,
		IPNStatus: domain.IPNStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	redirect, err := i.deps.Gateway.CreatePaymentURL(ctx, domain.PaymentRequest{
		Amount:    session.Amount,
		BankCode:  session.BankCode,
		Language:  session.Language,
		ReturnURL: session.ReturnURL,
	})

	i.mu.Lock()
	if i.gen != gen {
		i.mu.Unlock()

		i.deps.Logger.WarnContext(ctx, "checkout closed during payment initiation", "order_id", order.ID)
		if release != nil {
			i.unlock(ctx, release, order.ID)
		}
		return domain.PaymentSession{}, fmt.Errorf("initiate payment for order %s: checkout closed: %w", order.ID, domain.ErrInvalidTransition)
	}
	i.inflight = nil
	i.session = &session
	if err != nil {
		session.IPNStatus = domain.IPNStatusFailed
		i.lastErr = domain.KindOf(err)
		i.transition(ctx, StateFailed)
		i.mu.Unlock()

		i.deps.Logger.ErrorContext(ctx, "payment initiation failed", "order_id", order.ID, "error", err)
		if release != nil {
			i.unlock(ctx, release, order.ID)
		}
		i.settle(ctx, session)
		return session, fmt.Errorf("initiate payment for order %s: %w", order.ID, err)
	}

	session.GatewayRedirectURL = redirect
	i.release = release
	i.lastErr = domain.ErrorKindNone
	i.transition(ctx, StateRedirected)
	i.mu.Unlock()

	i.deps.Logger.InfoContext(ctx, "payment initiated", "order_id", order.ID, "session_id", session.ID, "amount", session.Amount.String())
	i.persist(ctx, session)
	return session, nil
}

// Confirm checks the gateway's callback query. Transport failures leave the
// machine in CONFIRMING with the raw payload kept; there is no automatic
// retry, the caller decides when to ask again.
//
// When concurrent calls race, only the one that moves the machine out of
// CONFIRMING settles the session; the others return its terminal status.
func (i *Initiator) Confirm(ctx context.Context, query url.Values) (domain.IPNStatus, error) {
	i.mu.Lock()
	if i.state != StateRedirected && i.state != StateConfirming {
		state := i.state
		i.mu.Unlock()
		return "", fmt.Errorf("confirm from %s: %w", state, domain.ErrInvalidTransition)
	}
	i.transition(ctx, StateConfirming)
	gen, sessionID := i.gen, i.session.ID
	i.mu.Unlock()

	res, err := i.deps.Gateway.CheckIPN(ctx, query)

	i.mu.Lock()
	if i.gen != gen || i.session == nil || i.session.ID != sessionID {
		i.mu.Unlock()
		return "", fmt.Errorf("confirm session %s: checkout closed: %w", sessionID, domain.ErrInvalidTransition)
	}
	switch i.state {
	case StateConfirming:
	case StateConfirmed, StateFailed:
		status := i.session.IPNStatus
		i.mu.Unlock()
		return status, nil
	default:
		state := i.state
		i.mu.Unlock()
		return "", fmt.Errorf("confirm from %s: %w", state, domain.ErrInvalidTransition)
	}
	session := *i.session
	session.RawConfirmation = res.Raw
	session.UpdatedAt = i.deps.Clock.Now()

	if err != nil {
		i.session = &session
		i.lastErr = domain.KindOf(err)
		i.mu.Unlock()

		i.deps.Logger.WarnContext(ctx, "payment confirmation indeterminate", "order_id", session.OrderID, "error", err)
		i.persist(ctx, session)
		return domain.IPNStatusPending, fmt.Errorf("confirm order %s: %w", session.OrderID, err)
	}

	session.IPNStatus = res.Status
	i.session = &session
	i.lastErr = domain.ErrorKindNone
	if res.Status == domain.IPNStatusSuccess {
		i.transition(ctx, StateConfirmed)
	} else {
		i.transition(ctx, StateFailed)
	}
	release := i.release
	i.release = nil
	i.mu.Unlock()

	i.deps.Logger.InfoContext(ctx, "payment confirmed", "order_id", session.OrderID, "status", res.Status, "code", res.Code)
	if release != nil {
		i.unlock(ctx, release, session.OrderID)
	}
	i.settle(ctx, session)
	return res.Status, nil
}

// Restore rebuilds the machine from the session store after the gateway
// round-trip, using the order id carried by the order cookie.
func (i *Initiator) Restore(ctx context.Context, orderID string) (domain.PaymentSession, error) {
	i.mu.Lock()
	if i.session != nil && i.session.OrderID == orderID && i.state != StateIdle {
		s := *i.session
		i.mu.Unlock()
		return s, nil
	}
	if i.state != StateIdle {
		i.mu.Unlock()
		return domain.PaymentSession{}, fmt.Errorf("restore order %s: %w", orderID, domain.ErrCheckoutInProgress)
	}
	i.mu.Unlock()

	if i.deps.Sessions == nil {
		return domain.PaymentSession{}, fmt.Errorf("restore order %s: %w", orderID, domain.ErrNotFound)
	}
	found, err := i.deps.Sessions.LatestByOrder(ctx, orderID)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("load payment session for order %s: %w: %w", orderID, domain.ErrBackendUnavailable, err)
	}
	if found == nil {
		return domain.PaymentSession{}, fmt.Errorf("restore order %s: %w", orderID, domain.ErrNotFound)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateIdle {
		return domain.PaymentSession{}, fmt.Errorf("restore order %s: %w", orderID, domain.ErrCheckoutInProgress)
	}
	s := *found
	i.session = &s
	switch s.IPNStatus {
	case domain.IPNStatusSuccess:
		i.transition(ctx, StateConfirmed)
	case domain.IPNStatusFailed:
		i.transition(ctx, StateFailed)
	default:
		i.transition(ctx, StateRedirected)
	}
	return s, nil
}

// Reset returns a finished checkout to IDLE so the order can be paid again.
func (i *Initiator) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case StateIdle:
		return nil
	case StateConfirmed, StateFailed:
		i.session = nil
		i.lastErr = domain.ErrorKindNone
		i.transition(ctx, StateIdle)
		return nil
	default:
		return fmt.Errorf("reset from %s: %w", i.state, domain.ErrInvalidTransition)
	}
}

// Close drops in-memory state and frees any held submit lock.
func (i *Initiator) Close(ctx context.Context) {
	i.mu.Lock()
	release := i.release
	orderID := ""
	if i.session != nil {
		orderID = i.session.OrderID
	}
	i.release = nil
	i.session = nil
	i.inflight = nil
	i.lastErr = domain.ErrorKindNone
	i.state = StateIdle
	i.gen++
	i.mu.Unlock()

	if release != nil {
		i.unlock(ctx, release, orderID)
	}
}

// transition must be called with mu held.
func (i *Initiator) transition(ctx context.Context, to State) {
	i.state = to
	i.deps.Instruments.CheckoutTransition(ctx, string(to))
}

func (i *Initiator) unlock(ctx context.Context, release func(context.Context) error, orderID string) {
	if err := release(ctx); err != nil {
		i.deps.Logger.WarnContext(ctx, "failed to release checkout lock", "order_id", orderID, "error", err)
	}
}

func (i *Initiator) persist(ctx context.Context, s domain.PaymentSession) {
	if i.deps.Sessions == nil {
		return
	}
	if err := i.deps.Sessions.Save(ctx, &s); err != nil {
		i.deps.Logger.ErrorContext(ctx, "failed to save payment session", "order_id", s.OrderID, "session_id", s.ID, "error", err)
	}
}

// settle records a terminal session and announces it.
func (i *Initiator) settle(ctx context.Context, s domain.PaymentSession) {
	i.persist(ctx, s)

	if i.deps.Publisher == nil {
		return
	}
	event := domain.CheckoutEvent{
		OrderID:   s.OrderID,
		SessionID: s.ID,
		Status:    s.IPNStatus,
		Amount:    s.Amount,
		Timestamp: s.UpdatedAt,
	}
	if err := i.deps.Publisher.Publish(ctx, s.OrderID, event); err != nil {
		i.deps.Logger.ErrorContext(ctx, "failed to publish checkout event", "order_id", s.OrderID, "error", err)
	}
}
