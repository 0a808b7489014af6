package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
)

const usersCollection = "users"

var (
	ErrProfileNotFound = apperr.New(apperr.KindNotFound, "profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	// Update rewrites name and address only.
	Update(ctx context.Context, id, name, address string, updatedAt time.Time) error
}

type repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.store.Get(ctx, usersCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("repository: get profile %s: %w", id, err)
	}

	var p Profile
	if err := doc.Decode(&p); err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	p.ID = doc.ID
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p *Profile) error {
	if _, err := r.store.Create(ctx, usersCollection, p.ID, p); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrProfileExists
		}
		return fmt.Errorf("repository: create profile %s: %w", p.ID, err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, id, name, address string, updatedAt time.Time) error {
	err := r.store.Merge(ctx, usersCollection, id, map[string]any{
		"name":      name,
		"address":   address,
		"updatedAt": updatedAt,
	})
	if err != nil {
		return fmt.Errorf("repository: update profile %s: %w", id, err)
	}
	return nil
}
