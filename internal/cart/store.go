// Package cart keeps each user's cart lines in the document store.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
	"golang.org/x/sync/errgroup"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 99

const (
	defaultClearAttempts    = 3
	defaultClearBackoff     = 200 * time.Millisecond
	defaultClearConcurrency = 8
)

var (
	ErrInvalidQuantity  = apperr.New(apperr.KindInvalidQuantity, "quantity must be at least 1")
	ErrQuantityTooLarge = apperr.New(apperr.KindInvalidQuantity, fmt.Sprintf("a cart line holds at most %d units", MaxLineQuantity))
	ErrMissingProduct  = apperr.New(apperr.KindInvalidArgument, "product id is required")
)

// PartialClearError reports the lines still in the cart after the last clear
// attempt. It matches apperr.ErrCartClearPartialFailure.
type PartialClearError struct {
	UserID    string
	Remaining []string
	Err       error
}

func (e *PartialClearError) Error() string {
	return fmt.Sprintf("cart: %d line(s) of user %s not cleared [%s]: %v",
		len(e.Remaining), e.UserID, strings.Join(e.Remaining, ", "), e.Err)
}

func (e *PartialClearError) Unwrap() error { return e.Err }

type Option func(*Store)

// WithClearRetry bounds how often Clear retries lines whose delete failed.
func WithClearRetry(attempts uint, initialBackoff time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.clearAttempts = attempts
		}
		if initialBackoff > 0 {
			s.clearBackoff = initialBackoff
		}
	}
}

func WithClearConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.clearConcurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	store            docstore.Store
	clearAttempts    uint
	clearBackoff     time.Duration
	clearConcurrency int
	now              func() time.Time
}

func NewStore(store docstore.Store, opts ...Option) *Store {
	s := &Store{
		store:            store,
		clearAttempts:    defaultClearAttempts,
		clearBackoff:     defaultClearBackoff,
		clearConcurrency: defaultClearConcurrency,
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func collection(user session.Identity) string {
	return docstore.Path("users", user.ID, "cart")
}

func requireUser(user session.Identity) error {
	if user.IsZero() {
		return fmt.Errorf("cart: %w", apperr.ErrNotAuthenticated)
	}
	return nil
}

// AddLine puts qty units of productID in size into the user's cart. If the
// cart already holds that product in that size the quantity is increased and
// the existing snapshot is kept.
func (s *Store) AddLine(ctx context.Context, user session.Identity, productID string, size Size, qty int64, snap Snapshot) (Line, error) {
	if err := requireUser(user); err != nil {
		return Line{}, err
	}
	if qty < 1 {
		return Line{}, fmt.Errorf("cart: add %s: %w", productID, ErrInvalidQuantity)
	}
	if qty > MaxLineQuantity {
		return Line{}, fmt.Errorf("cart: add %s: %w", productID, ErrQuantityTooLarge)
	}
	if strings.TrimSpace(productID) == "" {
		return Line{}, fmt.Errorf("cart: %w", ErrMissingProduct)
	}
	size, err := ParseSize(string(size))
	if err != nil {
		return Line{}, fmt.Errorf("cart: add %s: %w", productID, err)
	}
	if snap.Price.IsNegative() {
		return Line{}, fmt.Errorf("cart: add %s: %w", productID,
			apperr.New(apperr.KindInvalidArgument, "price cannot be negative"))
	}

	col := collection(user)
	id := LineID(productID, size)

	err = s.store.Increment(ctx, col, id, "quantity", qty, MaxLineQuantity)
	if errors.Is(err, docstore.ErrNotFound) {
		line := Line{
			ProductID: productID,
			Title:     snap.Title,
			Image:     snap.Image,
			Price:     snap.Price,
			Size:      size,
			Quantity:  qty,
			AddedAt:   s.now(),
		}
		_, err = s.store.Create(ctx, col, id, line)
		if errors.Is(err, docstore.ErrAlreadyExists) {
			// Another request created the line first.
			err = s.store.Increment(ctx, col, id, "quantity", qty, MaxLineQuantity)
		}
	}
	if errors.Is(err, docstore.ErrLimitExceeded) {
		return Line{}, fmt.Errorf("cart: add line %s: %w", id, ErrQuantityTooLarge)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Str("line_id", id).Msg("cart: failed to add line")
		return Line{}, fmt.Errorf("cart: add line %s: %w", id, err)
	}

	doc, err := s.store.Get(ctx, col, id)
	if err != nil {
		return Line{}, fmt.Errorf("cart: read line %s: %w", id, err)
	}
	line, err := decodeLine(doc)
	if err != nil {
		return Line{}, err
	}

	log.Info().Str("user_id", user.ID).Str("line_id", id).Int64("quantity", line.Quantity).Msg("cart: line added")
	return line, nil
}

// RemoveLine deletes one line. Removing a line that is not there succeeds.
func (s *Store) RemoveLine(ctx context.Context, user session.Identity, lineID string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, collection(user), lineID); err != nil {
		return fmt.Errorf("cart: remove line %s: %w", lineID, err)
	}
	return nil
}

// List returns the user's lines in the order they were first added.
func (s *Store) List(ctx context.Context, user session.Identity) ([]Line, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, collection(user))
	if err != nil {
		return nil, fmt.Errorf("cart: list lines: %w", err)
	}
	lines := make([]Line, 0, len(docs))
	for _, doc := range docs {
		line, err := decodeLine(doc)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Clear empties the cart. Lines whose delete fails are retried with
// exponential backoff; whatever is left afterwards is reported in a
// *PartialClearError.
func (s *Store) Clear(ctx context.Context, user session.Identity) error {
	lines, err := s.List(ctx, user)
	if err != nil {
		return err
	}
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return s.DeleteLines(ctx, user, ids)
}

// DeleteLines removes exactly the given lines with the same fan-out and retry
// as Clear. Lines added to the cart meanwhile are left alone.
func (s *Store) DeleteLines(ctx context.Context, user session.Identity, lineIDs []string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if len(lineIDs) == 0 {
		return nil
	}

	col := collection(user)
	remaining := lineIDs
	attempt := 0

	operation := func() (struct{}, error) {
		attempt++
		failed, lastErr := s.deleteAll(ctx, col, remaining)
		remaining = failed
		if len(failed) == 0 {
			return struct{}{}, nil
		}
		log.Warn().Err(lastErr).
			Str("user_id", user.ID).
			Int("attempt", attempt).
			Strs("line_ids", failed).
			Msg("cart: some lines were not deleted")
		return struct{}{}, lastErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.clearBackoff
	b.MaxInterval = 10 * s.clearBackoff

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.clearAttempts),
	)
	if err == nil {
		return nil
	}
	return &PartialClearError{
		UserID:    user.ID,
		Remaining: append([]string(nil), remaining...),
		Err:       apperr.Wrap(apperr.KindCartClearPartialFailure, "cart not fully cleared", err),
	}
}

// deleteAll deletes ids concurrently and returns those that failed, in the
// order they were given.
func (s *Store) deleteAll(ctx context.Context, col string, ids []string) ([]string, error) {
	var (
		mu      sync.Mutex
		failed  = make(map[string]bool)
		lastErr error
	)

	var g errgroup.Group
	g.SetLimit(s.clearConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := s.store.Delete(ctx, col, id); err != nil {
				mu.Lock()
				failed[id] = true
				lastErr = err
				mu.Unlock()
			}
			// One failed delete must not stop the others.
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(failed))
	for _, id := range ids {
		if failed[id] {
			out = append(out, id)
		}
	}
	return out, lastErr
}

func decodeLine(doc docstore.Document) (Line, error) {
	var l Line
	if err := doc.Decode(&l); err != nil {
		return Line{}, err
	}
	l.ID = doc.ID
	return l, nil
}
