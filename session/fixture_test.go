package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/jrsteele09/cmp-client/session"
	"github.com/jrsteele09/cmp-client/storage"
	"github.com/jrsteele09/cmp-client/users"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) ExchangePassword(ctx context.Context, username, password string) (oauthmodel.TokenResponse, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(oauthmodel.TokenResponse), args.Error(1)
}

func (m *mockAuthAPI) Signup(ctx context.Context, email, password string) (oauthmodel.TokenResponse, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(oauthmodel.TokenResponse), args.Error(1)
}

func (m *mockAuthAPI) CurrentUser(ctx context.Context, accessToken string) (*users.Profile, error) {
	args := m.Called(ctx, accessToken)
	profile, _ := args.Get(0).(*users.Profile)
	return profile, args.Error(1)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) SessionEstablished(ctx context.Context, state session.State) {
	m.Called(ctx, state)
}

func (m *mockObserver) SessionCleared(ctx context.Context) {
	m.Called(ctx)
}

// failingRepo fails every Set once failSet is on.
type failingRepo struct {
	*storage.InMemoryRepo
	failSet bool
}

func (r *failingRepo) Set(ctx context.Context, key, value string) error {
	if r.failSet {
		return errors.New("disk full")
	}
	return r.InMemoryRepo.Set(ctx, key, value)
}

type testFixture struct {
	ctx      context.Context
	repo     *storage.InMemoryRepo
	api      *mockAuthAPI
	observer *mockObserver
	store    *session.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	return setupTestFixtureWithRepo(t, storage.NewInMemoryRepo())
}

func setupTestFixtureWithRepo(t *testing.T, repo *storage.InMemoryRepo) *testFixture {
	ctx := context.Background()
	api := &mockAuthAPI{}
	observer := &mockObserver{}

	store, err := session.New(ctx, repo, api, session.WithObserver(observer))
	require.NoError(t, err)

	t.Cleanup(func() {
		api.AssertExpectations(t)
		observer.AssertExpectations(t)
	})

	return &testFixture{ctx: ctx, repo: repo, api: api, observer: observer, store: store}
}

func (f *testFixture) stored(t *testing.T, key string) (string, bool) {
	value, err := f.repo.Get(f.ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return value, true
}

func (f *testFixture) requireCleared(t *testing.T) {
	state := f.store.Snapshot()
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.AccessToken)
	require.Empty(t, state.RefreshToken)
	require.Nil(t, state.CurrentUser)
	require.Zero(t, f.repo.Len(), "no session key may remain persisted")
}

func bearerTokens(access, refresh string) oauthmodel.TokenResponse {
	return oauthmodel.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}
}

func sampleProfile(role users.RoleType) *users.Profile {
	return &users.Profile{
		ID:        uuid.MustParse("0b8e5c8e-7d4c-4b5f-9c61-3f1f2a0c9d11"),
		Email:     "a@b.com",
		RoleID:    role,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}
