package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/jersey-storefront/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "123456")
	t.Setenv("DB_NAME", "storefront")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_EnvOnly(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CHECKOUT_ALLOW_EMPTY_CART", "true")
	t.Setenv("CHECKOUT_CLEAR_ATTEMPTS", "5")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.True(t, cfg.Checkout.AllowEmptyCart)
	assert.Equal(t, uint(5), cfg.Checkout.ClearAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "db.internal")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
app:
  port: "7070"
  log_level: info
postgres:
  host: yaml-host
  max_conns: 20
  max_conn_lifetime: 5m
auth:
  token_ttl: 2h
checkout:
  clear_backoff: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "db.internal", cfg.Postgres.Host, "env must win over the file")
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Postgres.MaxConnLifetime)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 50*time.Millisecond, cfg.Checkout.ClearBackoff)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_NAME", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_BadFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
