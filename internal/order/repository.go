package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
)

var ErrOrderNotFound = apperr.New(apperr.KindNotFound, "order not found")

// Repository is the order ledger. Orders are only ever appended; the status
// field is the one thing that changes afterwards.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, email, id string) (*Order, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	UpdateStatus(ctx context.Context, email, id string, status Status, updatedAt time.Time) error
}

type repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func ledger(email string) string {
	return docstore.Path("orders", email, "userOrders")
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	id, err := r.store.Create(ctx, ledger(o.Email), o.ID, o)
	if err != nil {
		return fmt.Errorf("repository: create order: %w", err)
	}
	o.ID = id
	return nil
}

func (r *repository) GetByID(ctx context.Context, email, id string) (*Order, error) {
	doc, err := r.store.Get(ctx, ledger(email), id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: get order %s: %w", id, err)
	}
	return decodeOrder(doc)
}

func (r *repository) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	docs, err := r.store.Query(ctx, ledger(email))
	if err != nil {
		return nil, fmt.Errorf("repository: list orders: %w", err)
	}
	orders := make([]Order, 0, len(docs))
	for _, doc := range docs {
		o, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, email, id string, status Status, updatedAt time.Time) error {
	// Merge would create a stub document for an unknown id.
	if _, err := r.GetByID(ctx, email, id); err != nil {
		return err
	}
	err := r.store.Merge(ctx, ledger(email), id, map[string]any{
		"status":    status,
		"updatedAt": updatedAt,
	})
	if err != nil {
		return fmt.Errorf("repository: update order status %s: %w", id, err)
	}
	return nil
}

func decodeOrder(doc docstore.Document) (*Order, error) {
	var o Order
	if err := doc.Decode(&o); err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	o.ID = doc.ID
	return &o, nil
}
