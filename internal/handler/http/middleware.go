package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

const fulfillmentTokenHeader = "X-Fulfillment-Token"

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireIdentity resolves the bearer token and puts the identity on the
// request context. Requests without a valid token get 401.
func RequireIdentity(auth session.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondWithError(w, http.StatusUnauthorized, apperr.KindNotAuthenticated, "Sign in required")
				return
			}
			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				respondWithServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSharedToken guards back-office routes with a static token. An empty
// configured token disables the routes entirely.
func RequireSharedToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(fulfillmentTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondWithError(w, http.StatusUnauthorized, apperr.KindNotAuthenticated, "Invalid fulfillment token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identity(r *http.Request) session.Identity {
	id, _ := session.FromContext(r.Context())
	return id
}
