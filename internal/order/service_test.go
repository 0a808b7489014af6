package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/order"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, email, id string) (*order.Order, error) {
	args := m.Called(ctx, email, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByEmail(ctx context.Context, email string) ([]order.Order, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, email, id string, status order.Status, updatedAt time.Time) error {
	args := m.Called(ctx, email, id, status, updatedAt)
	return args.Error(0)
}

var alice = session.Identity{ID: "u-alice", Email: "Alice@Example.com", DisplayName: "Alice"}

func TestOrderService_ListOrders_NewestFirst(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo)

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stored := []order.Order{
		{ID: "o1", CreatedAt: t0},
		{ID: "o2", CreatedAt: t0.Add(time.Hour)},
		{ID: "o3", CreatedAt: t0.Add(30 * time.Minute)},
	}
	mockRepo.On("ListByEmail", mock.Anything, "alice@example.com").Return(stored, nil).Once()

	orders, err := svc.ListOrders(context.Background(), alice)
	require.NoError(t, err)

	var ids []string
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	require.Empty(t, cmp.Diff([]string{"o2", "o3", "o1"}, ids))
	mockRepo.AssertExpectations(t)
}

func TestOrderService_ListOrders_Anonymous(t *testing.T) {
	svc := order.NewService(new(MockOrderRepository))

	_, err := svc.ListOrders(context.Background(), session.Identity{})
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo)

	mockRepo.On("GetByID", mock.Anything, "alice@example.com", "missing").
		Return(nil, order.ErrOrderNotFound).
		Once()

	o, err := svc.GetOrder(context.Background(), "ALICE@example.com ", "missing")
	require.ErrorIs(t, err, order.ErrOrderNotFound)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Nil(t, o)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    order.Status
		next       order.Status
		expectSave bool
		wantErrIs  error
	}{
		{name: "processing_to_shipped", current: order.StatusProcessing, next: order.StatusShipped, expectSave: true},
		{name: "shipped_to_delivered", current: order.StatusShipped, next: order.StatusDelivered, expectSave: true},
		{name: "same_status_noop", current: order.StatusShipped, next: order.StatusShipped},
		{name: "skip_shipping", current: order.StatusProcessing, next: order.StatusDelivered, wantErrIs: order.ErrInvalidStatusTransition},
		{name: "backwards", current: order.StatusDelivered, next: order.StatusProcessing, wantErrIs: order.ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			svc := order.NewService(mockRepo)

			mockRepo.On("GetByID", mock.Anything, "alice@example.com", "o1").
				Return(&order.Order{ID: "o1", Email: "alice@example.com", Status: tt.current}, nil).
				Once()
			if tt.expectSave {
				mockRepo.On("UpdateStatus", mock.Anything, "alice@example.com", "o1", tt.next, mock.AnythingOfType("time.Time")).
					Return(nil).
					Once()
			}

			o, err := svc.UpdateStatus(context.Background(), "alice@example.com", "o1", tt.next)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, o.Status)
			if !tt.expectSave {
				mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_UpdateStatus_RepositoryError(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo)

	mockRepo.On("GetByID", mock.Anything, "alice@example.com", "o1").
		Return(&order.Order{ID: "o1", Status: order.StatusProcessing}, nil).
		Once()
	mockRepo.On("UpdateStatus", mock.Anything, "alice@example.com", "o1", order.StatusShipped, mock.Anything).
		Return(errors.New("connection reset")).
		Once()

	_, err := svc.UpdateStatus(context.Background(), "alice@example.com", "o1", order.StatusShipped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	mockRepo.AssertExpectations(t)
}

func TestParseStatus(t *testing.T) {
	s, err := order.ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, s)

	_, err = order.ParseStatus("cancelled")
	assert.Error(t, err)
}
