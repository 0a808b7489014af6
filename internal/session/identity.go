// Package session tracks who is signed in and tells the rest of the
// storefront when that changes.
package session

import (
	"context"
	"strings"
)

type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

func (i Identity) IsZero() bool {
	return i.ID == ""
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}

// NormalizeEmail lowercases and trims an address. Emails are ledger keys, so
// every component must agree on their form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
