// Package http exposes the storefront over HTTP.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/order"
	"github.com/vasiliy-maslov/jersey-storefront/internal/profile"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

// Deps are the services the router dispatches to.
type Deps struct {
	Accounts         Accounts
	Auth             session.Authenticator
	Catalog          Catalog
	Carts            Carts
	Checkout         CheckoutPreparer
	Committer        OrderPlacer
	Orders           order.Service
	Profiles         profile.Service
	FulfillmentToken string
	// Health reports whether the backing store is reachable. Nil means healthy.
	Health func(ctx context.Context) error
}

func NewRouter(d Deps) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", healthHandler(d.Health))

	NewAuthHandler(d.Accounts).RegisterRoutes(router)
	NewCatalogHandler(d.Catalog).RegisterRoutes(router)

	orders := NewOrderHandler(d.Checkout, d.Committer, d.Orders)

	router.Group(func(r chi.Router) {
		r.Use(RequireIdentity(d.Auth))
		NewCartHandler(d.Carts, d.Catalog).RegisterRoutes(r)
		orders.RegisterRoutes(r)
		NewProfileHandler(d.Profiles).RegisterRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(RequireSharedToken(d.FulfillmentToken))
		orders.RegisterFulfillmentRoutes(r)
	})

	return router
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Msg("http: health check failed")
				w.Header().Set("Retry-After", retryAfterSeconds)
				respondWithError(w, http.StatusServiceUnavailable, apperr.KindBackendUnavailable, "Backend unavailable")
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http: request handled")
	})
}
