// Command seed loads a catalog file into the products collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/catalog"
	"github.com/vasiliy-maslov/jersey-storefront/internal/config"
	"github.com/vasiliy-maslov/jersey-storefront/internal/db"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Products []catalog.Product `yaml:"products"`
}

func main() {
	path := flag.String("file", "products.yaml", "catalog YAML file")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*path); err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("Failed to seed catalog")
	}
}

func run(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbPool, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := catalog.NewReader(docstore.NewPostgres(dbPool.Pool)).Seed(ctx, file.Products); err != nil {
		return fmt.Errorf("seed %d products: %w", len(file.Products), err)
	}
	log.Info().Int("products", len(file.Products)).Msg("Catalog seeded")
	return nil
}
