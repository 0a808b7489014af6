package docstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
)

// TestPostgres runs the store suite against a real database. It needs
// STOREFRONT_TEST_DATABASE_URL pointing at a database with migrations applied.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("STOREFRONT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(context.Background()))

	runStoreSuite(t, func(t *testing.T) docstore.Store { return docstore.NewPostgres(pool) })
}
