// Package catalog reads product records. The storefront never writes them
// except through Seed.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
)

const productsCollection = "products"

var ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")

type Reader struct {
	store docstore.Store
}

func NewReader(store docstore.Store) *Reader {
	return &Reader{store: store}
}

func (r *Reader) GetProduct(ctx context.Context, id string) (Product, error) {
	doc, err := r.store.Get(ctx, productsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Product{}, fmt.Errorf("catalog: %s: %w", id, ErrProductNotFound)
		}
		return Product{}, fmt.Errorf("catalog: get product %s: %w", id, err)
	}
	return decodeProduct(doc)
}

// ListProducts returns every product, optionally only those carrying tag.
func (r *Reader) ListProducts(ctx context.Context, tag Tag) ([]Product, error) {
	var filters []docstore.Filter
	if tag != TagNone {
		filters = append(filters, docstore.Eq("tag", string(tag)))
	}

	docs, err := r.store.Query(ctx, productsCollection, filters...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}

	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProduct(doc)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Seed upserts products; used by the seed command to load a catalog file.
func (r *Reader) Seed(ctx context.Context, products []Product) error {
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("catalog: product %q has no id", p.Name)
		}
		if err := r.store.Set(ctx, productsCollection, p.ID, p); err != nil {
			return fmt.Errorf("catalog: seed product %s: %w", p.ID, err)
		}
	}
	log.Info().Int("count", len(products)).Msg("catalog: products seeded")
	return nil
}

func decodeProduct(doc docstore.Document) (Product, error) {
	var p Product
	if err := doc.Decode(&p); err != nil {
		return Product{}, err
	}
	p.ID = doc.ID
	return p, nil
}
