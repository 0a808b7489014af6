// Package checkout turns a cart into the figures shown on the checkout page
// and decides whether an order may be placed.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/cart"
	"github.com/vasiliy-maslov/jersey-storefront/internal/profile"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

var (
	ErrMissingAddress = errors.New("delivery address is required")
	ErrMissingPayment = errors.New("payment method is required")
	ErrEmptyCart      = errors.New("cart is empty")
)

type CartLister interface {
	List(ctx context.Context, user session.Identity) ([]cart.Line, error)
}

type ProfileGetter interface {
	Get(ctx context.Context, id session.Identity) (*profile.Profile, error)
}

// Snapshot is the cart as it stood when it was read.
type Snapshot struct {
	Lines    []cart.Line     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Items    int64           `json:"items"`
}

func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

func (s Snapshot) LineIDs() []string {
	ids := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		ids[i] = l.ID
	}
	return ids
}

// Prepared is a snapshot plus the address stored on the user's profile.
type Prepared struct {
	Snapshot
	Address string `json:"address"`
	Email   string `json:"email"`
}

type Aggregator struct {
	carts    CartLister
	profiles ProfileGetter
}

func NewAggregator(carts CartLister, profiles ProfileGetter) *Aggregator {
	return &Aggregator{carts: carts, profiles: profiles}
}

// Snapshot prices every line at the price it was added with. Catalog changes
// after that do not affect the total.
func (a *Aggregator) Snapshot(ctx context.Context, user session.Identity) (Snapshot, error) {
	lines, err := a.carts.List(ctx, user)
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkout: snapshot: %w", err)
	}
	return Summarize(lines), nil
}

func (a *Aggregator) Prepare(ctx context.Context, user session.Identity) (Prepared, error) {
	snap, err := a.Snapshot(ctx, user)
	if err != nil {
		return Prepared{}, err
	}
	p, err := a.profiles.Get(ctx, user)
	if err != nil {
		return Prepared{}, fmt.Errorf("checkout: prepare: %w", err)
	}
	return Prepared{Snapshot: snap, Address: p.Address, Email: p.Email}, nil
}

func (a *Aggregator) Validate(address, payment string) error {
	return Validate(address, payment)
}

// Summarize totals lines without touching any store.
func Summarize(lines []cart.Line) Snapshot {
	subtotal := decimal.Zero
	var items int64
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
		items += l.Quantity
	}
	if lines == nil {
		lines = []cart.Line{}
	}
	return Snapshot{Lines: lines, Subtotal: subtotal, Items: items}
}

// Validate fails with an IncompleteCheckout error naming every blank field.
// Whitespace-only values count as blank.
func Validate(address, payment string) error {
	var missing []error
	if strings.TrimSpace(address) == "" {
		missing = append(missing, ErrMissingAddress)
	}
	if strings.TrimSpace(payment) == "" {
		missing = append(missing, ErrMissingPayment)
	}
	if len(missing) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.KindIncompleteCheckout, "checkout incomplete", errors.Join(missing...))
}
