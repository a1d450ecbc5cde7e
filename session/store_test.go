package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/jrsteele09/cmp-client/session"
	"github.com/jrsteele09/cmp-client/storage"
	"github.com/jrsteele09/cmp-client/users"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	f := setupTestFixture(t)
	profile := sampleProfile(users.RoleDevops)

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(profile, nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.MatchedBy(func(st session.State) bool {
		return st.AccessToken == "acc" && st.CurrentUser != nil
	})).Once()

	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))

	state := f.store.Snapshot()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, "acc", state.AccessToken)
	require.Equal(t, "ref", state.RefreshToken)
	require.Equal(t, profile.Email, state.CurrentUser.Email)
	require.Empty(t, state.LoginError)
	require.True(t, f.store.IsDevops())
	require.False(t, f.store.IsAdmin())

	// storage and memory agree after a successful login
	token, _ := f.stored(t, storage.KeyToken)
	refresh, _ := f.stored(t, storage.KeyRefreshToken)
	authenticated, _ := f.stored(t, storage.KeyIsAuthenticated)
	user, ok := f.stored(t, storage.KeyUser)
	require.Equal(t, f.store.AccessToken(), token)
	require.Equal(t, f.store.RefreshToken(), refresh)
	require.Equal(t, "true", authenticated)
	require.True(t, ok)
	require.Contains(t, user, `"role_id":"devops"`)
}

func TestLogin_MixedCaseBearerAccepted(t *testing.T) {
	f := setupTestFixture(t)

	tokens := bearerTokens("acc", "ref")
	tokens.TokenType = "Bearer"
	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(tokens, nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleViewer), nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()

	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))
	require.True(t, f.store.IsViewer())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		tokens   oauthmodel.TokenResponse
		err      error
		expected string
	}{
		{
			name:     "single message",
			err:      oauthmodel.NewResponseError(http.StatusUnauthorized, []byte(`{"detail":"Incorrect credentials"}`)),
			expected: "Incorrect credentials",
		},
		{
			name:     "field errors",
			err:      oauthmodel.NewResponseError(http.StatusUnprocessableEntity, []byte(`{"detail":[{"loc":["body","username"],"msg":"field required"},{"loc":["body","password"],"msg":"field required"}]}`)),
			expected: "body.username - field required; body.password - field required",
		},
		{
			name:     "unrecognized body",
			err:      oauthmodel.NewResponseError(http.StatusBadRequest, []byte(`{"message":"nope"}`)),
			expected: "Invalid username or password.",
		},
		{
			name:     "network error",
			err:      errors.New("dial tcp: connection refused"),
			expected: "An error occurred during login. Please try again.",
		},
		{
			name:     "token type mismatch",
			tokens:   oauthmodel.TokenResponse{AccessToken: "acc", RefreshToken: "ref", TokenType: "mac"},
			expected: "An error occurred during login. Please try again.",
		},
		{
			name:     "missing access token",
			tokens:   oauthmodel.TokenResponse{TokenType: "bearer"},
			expected: "An error occurred during login. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.api.On("ExchangePassword", mock.Anything, "a@b.com", "wrong").Return(tt.tokens, tt.err).Once()

			require.False(t, f.store.Login(f.ctx, "a@b.com", "wrong"))
			require.Equal(t, tt.expected, f.store.LoginError())
			require.Empty(t, f.store.SignupError())
			f.requireCleared(t)
		})
	}
}

func TestLogin_FailureClearsPreviousSession(t *testing.T) {
	f := setupTestFixture(t)

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleAdmin), nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()
	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "bad").
		Return(oauthmodel.TokenResponse{}, oauthmodel.NewResponseError(http.StatusUnauthorized, []byte(`{"detail":"Incorrect email or password"}`))).Once()
	require.False(t, f.store.Login(f.ctx, "a@b.com", "bad"))

	require.Equal(t, "Incorrect email or password", f.store.LoginError())
	f.requireCleared(t)
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	f := setupTestFixture(t)

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "bad").
		Return(oauthmodel.TokenResponse{}, errors.New("timeout")).Once()
	require.False(t, f.store.Login(f.ctx, "a@b.com", "bad"))
	require.NotEmpty(t, f.store.LoginError())

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", ""), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleViewer), nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()
	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))

	require.Empty(t, f.store.LoginError())
	_, hasRefresh := f.stored(t, storage.KeyRefreshToken)
	require.False(t, hasRefresh)
}

func TestLogin_ProfileFetchFailureKeepsSession(t *testing.T) {
	f := setupTestFixture(t)

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(nil, oauthmodel.NewResponseError(http.StatusBadGateway, nil)).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()

	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))
	require.True(t, f.store.IsLoggedIn())
	require.Nil(t, f.store.CurrentUser())
	require.Equal(t, users.RoleType(""), f.store.Role())
}

func TestLogin_ProfileUnauthorizedFailsLogin(t *testing.T) {
	f := setupTestFixture(t)

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").
		Return(nil, oauthmodel.NewResponseError(http.StatusUnauthorized, []byte(`{"detail":"Could not validate credentials"}`))).Once()
	f.observer.On("SessionCleared", mock.Anything).Once()

	require.False(t, f.store.Login(f.ctx, "a@b.com", "pw"))
	require.Equal(t, oauthmodel.LoginMessages.NoResponse, f.store.LoginError())
	f.requireCleared(t)
}

func TestLogin_StorageFailureFailsClosed(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{InMemoryRepo: storage.NewInMemoryRepo(), failSet: true}
	api := &mockAuthAPI{}
	api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()

	store, err := session.New(ctx, repo, api)
	require.NoError(t, err)

	require.False(t, store.Login(ctx, "a@b.com", "pw"))
	require.False(t, store.IsLoggedIn())
	require.Empty(t, store.AccessToken())
	require.Equal(t, oauthmodel.LoginMessages.NoResponse, store.LoginError())
	api.AssertExpectations(t)
}

func TestSignup(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupTestFixture(t)
		f.api.On("Signup", mock.Anything, "new@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
		f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleViewer), nil).Once()
		f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()

		require.True(t, f.store.Signup(f.ctx, "new@b.com", "pw"))
		require.True(t, f.store.IsLoggedIn())
		require.Empty(t, f.store.SignupError())
	})

	t.Run("failures", func(t *testing.T) {
		tests := []struct {
			name     string
			tokens   oauthmodel.TokenResponse
			err      error
			expected string
		}{
			{"already registered", oauthmodel.TokenResponse{}, oauthmodel.NewResponseError(http.StatusBadRequest, []byte(`{"detail":"User already registered"}`)), "User already registered"},
			{"top level message", oauthmodel.TokenResponse{}, oauthmodel.NewResponseError(http.StatusBadRequest, []byte(`{"message":"Email taken"}`)), "Email taken"},
			{"unrecognized", oauthmodel.TokenResponse{}, oauthmodel.NewResponseError(http.StatusInternalServerError, []byte(`{"error":"boom"}`)), "An error occurred during signup."},
			{"network", oauthmodel.TokenResponse{}, errors.New("connection reset"), "An error occurred during signup. Please try again."},
			{"token type mismatch", oauthmodel.TokenResponse{AccessToken: "acc", TokenType: "mac"}, nil, "An error occurred during signup. Please try again."},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := setupTestFixture(t)
				f.api.On("Signup", mock.Anything, "new@b.com", "pw").Return(tt.tokens, tt.err).Once()

				require.False(t, f.store.Signup(f.ctx, "new@b.com", "pw"))
				require.Equal(t, tt.expected, f.store.SignupError())
				require.Empty(t, f.store.LoginError())
				f.requireCleared(t)
			})
		}
	})
}

func TestLogout_Idempotent(t *testing.T) {
	f := setupTestFixture(t)

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleAdmin), nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()
	f.observer.On("SessionCleared", mock.Anything).Twice()
	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))

	f.store.Logout(f.ctx)
	once := f.store.Snapshot()
	f.requireCleared(t)

	f.store.Logout(f.ctx)
	require.Equal(t, once, f.store.Snapshot())
	f.requireCleared(t)
}

func TestLogout_ClearsErrors(t *testing.T) {
	f := setupTestFixture(t)
	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "bad").Return(oauthmodel.TokenResponse{}, errors.New("timeout")).Once()
	f.observer.On("SessionCleared", mock.Anything).Once()

	require.False(t, f.store.Login(f.ctx, "a@b.com", "bad"))
	f.store.Logout(f.ctx)
	require.Empty(t, f.store.LoginError())
}

func TestFetchCurrentUser(t *testing.T) {
	login := func(t *testing.T) *testFixture {
		f := setupTestFixture(t)
		f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
		f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleViewer), nil).Once()
		f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()
		require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))
		return f
	}

	t.Run("without token is a no-op", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.FetchCurrentUser(f.ctx)
		f.api.AssertNotCalled(t, "CurrentUser", mock.Anything, mock.Anything)
	})

	t.Run("replaces user", func(t *testing.T) {
		f := login(t)
		f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleAdmin), nil).Once()

		f.store.FetchCurrentUser(f.ctx)
		require.True(t, f.store.IsAdmin())
		user, _ := f.stored(t, storage.KeyUser)
		require.Contains(t, user, `"role_id":"admin"`)
	})

	t.Run("unauthorized logs out", func(t *testing.T) {
		f := login(t)
		f.api.On("CurrentUser", mock.Anything, "acc").Return(nil, oauthmodel.NewResponseError(http.StatusUnauthorized, nil)).Once()
		f.observer.On("SessionCleared", mock.Anything).Once()

		f.store.FetchCurrentUser(f.ctx)
		f.requireCleared(t)
	})

	t.Run("transient failure keeps session", func(t *testing.T) {
		f := login(t)
		before := f.store.Snapshot()
		f.api.On("CurrentUser", mock.Anything, "acc").Return(nil, errors.New("i/o timeout")).Once()

		f.store.FetchCurrentUser(f.ctx)
		require.Equal(t, before, f.store.Snapshot())
	})
}

func TestFetchCurrentUser_StaleResponseAfterLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(nil, errors.New("i/o timeout")).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()
	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.On("CurrentUser", mock.Anything, "acc").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(sampleProfile(users.RoleAdmin), nil).Once()
	f.observer.On("SessionCleared", mock.Anything).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.store.FetchCurrentUser(f.ctx)
	}()

	<-started
	f.store.Logout(f.ctx)
	close(release)
	<-done

	// the late profile must not resurrect the cleared session
	f.requireCleared(t)
}

// Overlapping logins are not serialised: whichever exchange finishes last owns the session.
func TestLogin_OverlappingLoginsLastWriteWins(t *testing.T) {
	f := setupTestFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.On("ExchangePassword", mock.Anything, "first@b.com", "pw").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(bearerTokens("first", "r1"), nil).Once()
	f.api.On("ExchangePassword", mock.Anything, "second@b.com", "pw").Return(bearerTokens("second", "r2"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "first").Return(sampleProfile(users.RoleViewer), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "second").Return(sampleProfile(users.RoleAdmin), nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Twice()

	var (
		wg          sync.WaitGroup
		firstResult bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstResult = f.store.Login(f.ctx, "first@b.com", "pw")
	}()

	<-started
	require.True(t, f.store.Login(f.ctx, "second@b.com", "pw"))
	require.Equal(t, "second", f.store.AccessToken())

	close(release)
	wg.Wait()

	require.True(t, firstResult)
	require.Equal(t, "first", f.store.AccessToken())
	require.True(t, f.store.IsViewer())
	token, _ := f.stored(t, storage.KeyToken)
	require.Equal(t, "first", token)
}

func TestStore_AsTokenSource(t *testing.T) {
	f := setupTestFixture(t)
	require.Empty(t, f.store.AccessToken())

	f.api.On("ExchangePassword", mock.Anything, "a@b.com", "pw").Return(bearerTokens("acc", "ref"), nil).Once()
	f.api.On("CurrentUser", mock.Anything, "acc").Return(sampleProfile(users.RoleViewer), nil).Once()
	f.observer.On("SessionEstablished", mock.Anything, mock.Anything).Once()
	require.True(t, f.store.Login(f.ctx, "a@b.com", "pw"))

	var source interface{ AccessToken() string } = f.store
	require.Equal(t, "acc", source.AccessToken())
}
