package profile_test

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
	"github.com/vasiliy-maslov/jersey-storefront/internal/docstore"
	"github.com/vasiliy-maslov/jersey-storefront/internal/profile"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), args.Error(1)
}

func (m *MockProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileRepository) Update(ctx context.Context, id, name, address string, updatedAt time.Time) error {
	args := m.Called(ctx, id, name, address, updatedAt)
	return args.Error(0)
}

var alice = session.Identity{ID: "u-alice", Email: "Alice@Example.com", DisplayName: "Alice"}

func TestProfileService_Get_FallsBackToIdentity(t *testing.T) {
	mockRepo := new(MockProfileRepository)
	svc := profile.NewService(mockRepo)

	mockRepo.On("GetByID", mock.Anything, alice.ID).
		Return(nil, profile.ErrProfileNotFound).
		Once()

	p, err := svc.Get(context.Background(), alice)
	require.NoError(t, err)

	want := profile.Profile{ID: alice.ID, Name: "Alice", Email: "alice@example.com"}
	require.Empty(t, cmp.Diff(want, *p))
	mockRepo.AssertExpectations(t)
}

func TestProfileService_Get_Stored(t *testing.T) {
	mockRepo := new(MockProfileRepository)
	svc := profile.NewService(mockRepo)

	stored := &profile.Profile{ID: alice.ID, Name: "Alice L.", Email: "alice@example.com", Address: "Flat 4B"}
	mockRepo.On("GetByID", mock.Anything, alice.ID).Return(stored, nil).Once()

	p, err := svc.Get(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "Flat 4B", p.Address)
	assert.Equal(t, "Alice L.", p.Name)
	mockRepo.AssertExpectations(t)
}

func TestProfileService_Get_RepositoryError(t *testing.T) {
	mockRepo := new(MockProfileRepository)
	svc := profile.NewService(mockRepo)

	backendErr := apperr.Wrap(apperr.KindBackendUnavailable, "db down", errors.New("dial tcp"))
	mockRepo.On("GetByID", mock.Anything, alice.ID).Return(nil, backendErr).Once()

	_, err := svc.Get(context.Background(), alice)
	require.ErrorIs(t, err, apperr.ErrBackendUnavailable)
	mockRepo.AssertExpectations(t)
}

func TestProfileService_Get_Anonymous(t *testing.T) {
	svc := profile.NewService(new(MockProfileRepository))

	_, err := svc.Get(context.Background(), session.Identity{})
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestProfileService_Ensure_CreatesOnce(t *testing.T) {
	mockRepo := new(MockProfileRepository)
	svc := profile.NewService(mockRepo)

	mockRepo.On("GetByID", mock.Anything, alice.ID).
		Return(nil, profile.ErrProfileNotFound).
		Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *profile.Profile) bool {
		return p.ID == alice.ID && p.Email == "alice@example.com" && !p.CreatedAt.IsZero()
	})).Return(nil).Once()

	p, err := svc.Ensure(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	mockRepo.AssertExpectations(t)
}

func TestProfileService_Ensure_LostRace(t *testing.T) {
	mockRepo := new(MockProfileRepository)
	svc := profile.NewService(mockRepo)

	winner := &profile.Profile{ID: alice.ID, Name: "Alice", Email: "alice@example.com"}
	mockRepo.On("GetByID", mock.Anything, alice.ID).Return(nil, profile.ErrProfileNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*profile.Profile")).Return(profile.ErrProfileExists).Once()
	mockRepo.On("GetByID", mock.Anything, alice.ID).Return(winner, nil).Once()

	p, err := svc.Ensure(context.Background(), alice)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(*winner, *p))
	mockRepo.AssertExpectations(t)
}

func TestProfileService_Save_RequiresName(t *testing.T) {
	mockRepo := new(MockProfileRepository)
	svc := profile.NewService(mockRepo)

	_, err := svc.Save(context.Background(), alice, "   ", "Flat 4B")
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	mockRepo.AssertNotCalled(t, "Update")
}

func TestProfileService_SaveKeepsEmail(t *testing.T) {
	mem := docstore.NewMemory()
	svc := profile.NewService(profile.NewRepository(mem))
	ctx := context.Background()

	_, err := svc.Ensure(ctx, alice)
	require.NoError(t, err)

	renamed := alice
	renamed.Email = "someone-else@example.com"
	p, err := svc.Save(ctx, renamed, " Alice Liddell ", " Flat 4B ")
	require.NoError(t, err)

	assert.Equal(t, "Alice Liddell", p.Name)
	assert.Equal(t, "Flat 4B", p.Address)
	assert.Equal(t, "alice@example.com", p.Email)
}

func TestListen_EnsuresProfileOnSignIn(t *testing.T) {
	mem := docstore.NewMemory()
	svc := profile.NewService(profile.NewRepository(mem))
	hub := session.NewHub(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		profile.Listen(ctx, hub, svc)
		close(done)
	}()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(session.Event{Kind: session.EventSignedOut, Identity: alice})
	hub.Publish(session.Event{Kind: session.EventSignedIn, Identity: alice})

	require.Eventually(t, func() bool { return mem.Count("users") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
