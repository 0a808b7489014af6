package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
)

func TestMemory_FaultInjection(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()
	boom := errors.New("unavailable")

	_, err := s.Create(ctx, "products", "p1", map[string]any{"name": "Home Kit"})
	require.NoError(t, err)

	s.SetFault(func(op docstore.Op, collection, id string) error {
		if op == docstore.OpDelete && id == "p1" {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, s.Delete(ctx, "products", "p1"), boom)
	assert.Equal(t, 1, s.Count("products"), "failed delete must not apply")

	s.SetFault(nil)
	require.NoError(t, s.Delete(ctx, "products", "p1"))
	assert.Equal(t, 0, s.Count("products"))
}

func TestMemory_QueryFilterOnNumber(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()

	_, err := s.Create(ctx, "products", "a", map[string]any{"rating": 4.5})
	require.NoError(t, err)
	_, err = s.Create(ctx, "products", "b", map[string]any{"rating": 3})
	require.NoError(t, err)

	docs, err := s.Query(ctx, "products", docstore.Eq("rating", 3))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestMemory_Timestamps(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()
	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return created })

	_, err := s.Create(ctx, "users/u1/cart", "A_M", map[string]any{"quantity": 1})
	require.NoError(t, err)

	updated := created.Add(time.Minute)
	s.SetClock(func() time.Time { return updated })
	require.NoError(t, s.Increment(ctx, "users/u1/cart", "A_M", "quantity", 1, 99))

	doc, err := s.Get(ctx, "users/u1/cart", "A_M")
	require.NoError(t, err)
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, updated, doc.UpdatedAt)
}
