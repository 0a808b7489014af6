package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := session.NewTokenManager("secret", "storefront", time.Hour)
	id := session.Identity{ID: "u1", Email: "alice@example.com", DisplayName: "Alice"}

	token, expiresAt, err := m.Issue(id, "s1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, sessionID, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "s1", sessionID)
}

func TestTokenManager_Rejects(t *testing.T) {
	id := session.Identity{ID: "u1", Email: "alice@example.com"}
	issuer := session.NewTokenManager("secret", "storefront", time.Hour)
	token, _, err := issuer.Issue(id, "s1")
	require.NoError(t, err)

	expired, _, err := session.NewTokenManager("secret", "storefront", -time.Minute).Issue(id, "s2")
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *session.TokenManager
		token   string
	}{
		{name: "empty", manager: issuer, token: ""},
		{name: "wrong_secret", manager: session.NewTokenManager("other", "storefront", time.Hour), token: token},
		{name: "wrong_issuer", manager: session.NewTokenManager("secret", "elsewhere", time.Hour), token: token},
		{name: "expired", manager: issuer, token: expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.manager.Parse(tt.token)
			assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
		})
	}
}
