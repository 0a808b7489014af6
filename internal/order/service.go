package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusProcessing: {
		StatusShipped: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
}

var ErrInvalidStatusTransition = errors.New("invalid order status transition")

type Service interface {
	ListOrders(ctx context.Context, id session.Identity) ([]Order, error)
	GetOrder(ctx context.Context, email, id string) (*Order, error)
	UpdateStatus(ctx context.Context, email, id string, newStatus Status) (*Order, error)
}

type service struct {
	orderRepo Repository
	now       func() time.Time
}

func NewService(orderRepo Repository) Service {
	return &service{
		orderRepo: orderRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListOrders returns the identity's orders, newest first.
func (s *service) ListOrders(ctx context.Context, id session.Identity) ([]Order, error) {
	if id.IsZero() || id.Email == "" {
		return nil, fmt.Errorf("service: %w", apperr.ErrNotAuthenticated)
	}

	orders, err := s.orderRepo.ListByEmail(ctx, session.NormalizeEmail(id.Email))
	if err != nil {
		log.Error().Err(err).Str("user_id", id.ID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, email, id string) (*Order, error) {
	o, err := s.orderRepo.GetByID(ctx, session.NormalizeEmail(email), id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, email, id string, newStatus Status) (*Order, error) {
	email = session.NormalizeEmail(email)

	current, err := s.GetOrder(ctx, email, id)
	if err != nil {
		return nil, err
	}

	if current.Status == newStatus {
		log.Info().Str("order_id", id).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return current, nil
	}

	transitions, ok := allowedTransitions[current.Status]
	if !ok || !transitions[newStatus] {
		log.Warn().
			Str("order_id", id).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("service: %s to %s: %w", current.Status, newStatus, ErrInvalidStatusTransition)
	}

	now := s.now()
	if err := s.orderRepo.UpdateStatus(ctx, email, id, newStatus, now); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", id).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Str("order_id", id).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
	current.Status = newStatus
	current.UpdatedAt = now
	return current, nil
}
