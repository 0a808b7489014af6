package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/cart"
	"github.com/vasiliy-maslov/jersey-storefront/internal/catalog"
	"github.com/vasiliy-maslov/jersey-storefront/internal/checkout"
	"github.com/vasiliy-maslov/jersey-storefront/internal/config"
	"github.com/vasiliy-maslov/jersey-storefront/internal/db"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
	storefronthttp "github.com/vasiliy-maslov/jersey-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/jersey-storefront/internal/order"
	"github.com/vasiliy-maslov/jersey-storefront/internal/profile"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

func setupLogger(cfg config.AppConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "prod" || cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.Name).Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Str("service", cfg.Name).Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)
	log.Info().Str("env", cfg.App.Env).Msg("Starting storefront...")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Storefront failed")
	}
	log.Info().Msg("Storefront stopped gracefully.")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbPool.Close()

	store := docstore.NewPostgres(dbPool.Pool)
	hub := session.NewHub(64)

	if cfg.Redis.Addr != "" {
		relay, err := session.NewRedisRelay(ctx, cfg.Redis.Addr, cfg.Redis.Channel, hub)
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Session relay stopped")
			}
		}()
	}

	tokens := session.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	provider := session.NewLocalProvider(store, tokens, hub)

	profiles := profile.NewService(profile.NewRepository(store))
	go profile.Listen(ctx, hub, profiles)

	carts := cart.NewStore(store,
		cart.WithClearRetry(cfg.Checkout.ClearAttempts, cfg.Checkout.ClearBackoff),
		cart.WithClearConcurrency(cfg.Checkout.ClearConcurrent),
	)
	aggregator := checkout.NewAggregator(carts, profiles)
	orderRepo := order.NewRepository(store)
	committer := order.NewCommitter(aggregator, orderRepo, carts, order.WithAllowEmptyCart(cfg.Checkout.AllowEmptyCart))

	router := storefronthttp.NewRouter(storefronthttp.Deps{
		Accounts:         provider,
		Auth:             provider,
		Catalog:          catalog.NewReader(store),
		Carts:            carts,
		Checkout:         aggregator,
		Committer:        committer,
		Orders:           order.NewService(orderRepo),
		Profiles:         profiles,
		FulfillmentToken: cfg.FulfillmentToken,
		Health:           dbPool.Pool.Ping,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("listen on port %s: %w", cfg.App.Port, err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
