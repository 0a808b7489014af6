package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/cart"
	"github.com/vasiliy-maslov/jersey-storefront/internal/checkout"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

// State is a step of placing one order.
type State string

const (
	StateIdle         State = "Idle"
	StateValidating   State = "Validating"
	StatePersisting   State = "Persisting"
	StateClearingCart State = "ClearingCart"
	StateDone         State = "Done"
	StateFailed       State = "Failed"
)

func (s State) String() string {
	return string(s)
}

var commitTransitions = map[State]map[State]bool{
	StateIdle: {
		StateValidating: true,
	},
	StateValidating: {
		StatePersisting: true,
		StateFailed:     true,
	},
	StatePersisting: {
		StateClearingCart: true,
		StateFailed:       true,
	},
	StateClearingCart: {
		StateDone: true,
	},
	StateDone:   {},
	StateFailed: {},
}

type Checkout interface {
	Snapshot(ctx context.Context, user session.Identity) (checkout.Snapshot, error)
	Validate(address, payment string) error
}

type CartClearer interface {
	DeleteLines(ctx context.Context, user session.Identity, lineIDs []string) error
}

// StateObserver is told about every state change of a commit.
type StateObserver func(from, to State)

type CommitterOption func(*Committer)

// WithAllowEmptyCart lets an empty cart produce a zero-total order.
func WithAllowEmptyCart(allow bool) CommitterOption {
	return func(c *Committer) { c.allowEmpty = allow }
}

func WithCommitClock(now func() time.Time) CommitterOption {
	return func(c *Committer) { c.now = now }
}

func WithStateObserver(obs StateObserver) CommitterOption {
	return func(c *Committer) { c.observe = obs }
}

// Committer places orders: it snapshots the cart, appends the order to the
// ledger and then clears the lines it ordered. The ledger write is the point
// of no return; a cart that fails to clear afterwards is logged, not reported
// to the buyer.
type Committer struct {
	checkout   Checkout
	orders     Repository
	carts      CartClearer
	allowEmpty bool
	now        func() time.Time
	observe    StateObserver
}

func NewCommitter(co Checkout, orders Repository, carts CartClearer, opts ...CommitterOption) *Committer {
	c := &Committer{
		checkout: co,
		orders:   orders,
		carts:    carts,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type commit struct {
	c     *Committer
	state State
	user  string
}

func (r *commit) advance(next State) {
	if !commitTransitions[r.state][next] {
		log.Error().Str("user_id", r.user).Stringer("from", r.state).Stringer("to", next).Msg("committer: unexpected state transition")
	}
	log.Debug().Str("user_id", r.user).Stringer("from", r.state).Stringer("to", next).Msg("committer: state changed")
	if r.c.observe != nil {
		r.c.observe(r.state, next)
	}
	r.state = next
}

func (r *commit) fail(err error) error {
	r.advance(StateFailed)
	log.Warn().Err(err).Str("user_id", r.user).Str("kind", apperr.KindOf(err).String()).Msg("committer: order not placed")
	return err
}

// PlaceOrder turns the user's cart into an order. It performs no write unless
// the user is signed in, address and payment are filled in and the cart holds
// at least one line. Once the order write starts, cancelling ctx no longer
// stops it.
func (c *Committer) PlaceOrder(ctx context.Context, user session.Identity, address, payment string) (*Order, error) {
	run := &commit{c: c, state: StateIdle, user: user.ID}

	if user.IsZero() || strings.TrimSpace(user.Email) == "" {
		return nil, fmt.Errorf("committer: %w", apperr.ErrNotAuthenticated)
	}
	run.advance(StateValidating)

	if err := c.checkout.Validate(address, payment); err != nil {
		return nil, run.fail(err)
	}
	snap, err := c.checkout.Snapshot(ctx, user)
	if err != nil {
		return nil, run.fail(fmt.Errorf("committer: %w", err))
	}
	if snap.Empty() && !c.allowEmpty {
		return nil, run.fail(apperr.Wrap(apperr.KindIncompleteCheckout, "checkout incomplete", checkout.ErrEmptyCart))
	}

	run.advance(StatePersisting)
	wctx := context.WithoutCancel(ctx)

	id, err := uuid.NewV4()
	if err != nil {
		return nil, run.fail(apperr.Wrap(apperr.KindOrderWriteFailed, "order not saved", err))
	}
	now := c.now()
	o := &Order{
		ID:        id.String(),
		Reference: Reference(now),
		UserID:    user.ID,
		Email:     session.NormalizeEmail(user.Email),
		Items:     ItemsFromLines(snap.Lines),
		Address:   strings.TrimSpace(address),
		Payment:   strings.TrimSpace(payment),
		Total:     snap.Subtotal,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.orders.Create(wctx, o); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Str("order_id", o.ID).Msg("committer: failed to write order")
		return nil, run.fail(apperr.Wrap(apperr.KindOrderWriteFailed, "order not saved", err))
	}
	log.Info().
		Str("user_id", user.ID).
		Str("order_id", o.ID).
		Str("reference", o.Reference).
		Str("total", o.Total.StringFixed(2)).
		Int("lines", len(o.Items)).
		Msg("committer: order written")

	run.advance(StateClearingCart)
	if err := c.carts.DeleteLines(wctx, user, snap.LineIDs()); err != nil {
		ev := log.Error().Err(err).Str("user_id", user.ID).Str("order_id", o.ID)
		var partial *cart.PartialClearError
		if errors.As(err, &partial) {
			ev = ev.Strs("line_ids", partial.Remaining)
		}
		ev.Msg("committer: cart not cleared after order, needs reconciliation")
	}

	run.advance(StateDone)
	return o, nil
}
