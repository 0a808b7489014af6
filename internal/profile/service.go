// Package profile keeps the user record shown on the profile page and used to
// pre-fill the checkout address.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

var ErrNameRequired = apperr.New(apperr.KindInvalidArgument, "name is required")

type Service interface {
	Get(ctx context.Context, id session.Identity) (*Profile, error)
	Save(ctx context.Context, id session.Identity, name, address string) (*Profile, error)
	Ensure(ctx context.Context, id session.Identity) (*Profile, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the stored profile. Identities without one yet get a profile
// built from the identity itself.
func (s *service) Get(ctx context.Context, id session.Identity) (*Profile, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("service: %w", apperr.ErrNotAuthenticated)
	}

	p, err := s.repo.GetByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return &Profile{ID: id.ID, Name: id.DisplayName, Email: session.NormalizeEmail(id.Email)}, nil
		}
		log.Error().Err(err).Str("user_id", id.ID).Msg("service: failed to get profile")
		return nil, fmt.Errorf("service: failed to get profile: %w", err)
	}

	if p.Name == "" {
		p.Name = id.DisplayName
	}
	if p.Email == "" {
		p.Email = session.NormalizeEmail(id.Email)
	}
	return p, nil
}

func (s *service) Ensure(ctx context.Context, id session.Identity) (*Profile, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("service: %w", apperr.ErrNotAuthenticated)
	}

	p, err := s.repo.GetByID(ctx, id.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("service: failed to get profile: %w", err)
	}

	now := s.now()
	p = &Profile{
		ID:        id.ID,
		Name:      id.DisplayName,
		Email:     session.NormalizeEmail(id.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrProfileExists) {
			return s.repo.GetByID(ctx, id.ID)
		}
		log.Error().Err(err).Str("user_id", id.ID).Msg("service: failed to create profile")
		return nil, fmt.Errorf("service: failed to create profile: %w", err)
	}

	log.Info().Str("user_id", id.ID).Msg("service: profile created")
	return p, nil
}

// Save updates name and address. The email stays what it was at creation.
func (s *service) Save(ctx context.Context, id session.Identity, name, address string) (*Profile, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" {
		return nil, ErrNameRequired
	}

	if _, err := s.Ensure(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id.ID, name, address, s.now()); err != nil {
		log.Error().Err(err).Str("user_id", id.ID).Msg("service: failed to update profile")
		return nil, fmt.Errorf("service: failed to update profile: %w", err)
	}

	return s.Get(ctx, id)
}

// Listen ensures a profile exists for everyone who signs up or in. It returns
// when ctx is done.
func Listen(ctx context.Context, hub *session.Hub, svc Service) {
	hub.Listen(ctx, func(ctx context.Context, ev session.Event) {
		if ev.Kind != session.EventSignedUp && ev.Kind != session.EventSignedIn {
			return
		}
		if _, err := svc.Ensure(ctx, ev.Identity); err != nil {
			log.Error().Err(err).Str("user_id", ev.Identity.ID).Str("event", string(ev.Kind)).Msg("profile: failed to ensure profile")
		}
	})
}
