package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
	"github.com/vasiliy-maslov/jersey-storefront/internal/order"
)

func TestRepository_CreateAndGet(t *testing.T) {
	repo := order.NewRepository(docstore.NewMemory())
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	o := &order.Order{
		ID:        "o1",
		Reference: order.Reference(now),
		Email:     "alice@example.com",
		Items:     []order.Item{{ProductID: "A", Size: "M", Quantity: 2, Price: decimal.RequireFromString("999.00")}},
		Address:   "Flat 4B",
		Payment:   "upi:alice@bank",
		Total:     decimal.RequireFromString("1998.00"),
		Status:    order.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, "alice@example.com", "o1")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1777896000000", got.Reference)
	assert.True(t, got.Total.Equal(o.Total))
	assert.Equal(t, order.StatusProcessing, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].Quantity)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestRepository_CreateGeneratesID(t *testing.T) {
	repo := order.NewRepository(docstore.NewMemory())

	o := &order.Order{Email: "alice@example.com", Status: order.StatusProcessing}
	require.NoError(t, repo.Create(context.Background(), o))
	assert.NotEmpty(t, o.ID)
}

func TestRepository_LedgerIsPerEmail(t *testing.T) {
	repo := order.NewRepository(docstore.NewMemory())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &order.Order{ID: "o1", Email: "alice@example.com"}))
	require.NoError(t, repo.Create(ctx, &order.Order{ID: "o2", Email: "bob@example.com"}))

	orders, err := repo.ListByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)

	_, err = repo.GetByID(ctx, "bob@example.com", "o1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := order.NewRepository(docstore.NewMemory())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &order.Order{ID: "o1", Email: "alice@example.com", Address: "Flat 4B", Status: order.StatusProcessing}))
	require.NoError(t, repo.UpdateStatus(ctx, "alice@example.com", "o1", order.StatusShipped, time.Now()))

	got, err := repo.GetByID(ctx, "alice@example.com", "o1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
	assert.Equal(t, "Flat 4B", got.Address)

	err = repo.UpdateStatus(ctx, "alice@example.com", "nope", order.StatusShipped, time.Now())
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
