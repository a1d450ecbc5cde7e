package session

import (
	"context"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
	"github.com/jrsteele09/cmp-client/oauthmodel"
)

type exchangeFunc func(ctx context.Context) (oauthmodel.TokenResponse, error)

// attempt describes one credential exchange: which error field it owns and how errors read.
type attempt struct {
	name     string
	messages oauthmodel.Messages
	setError func(st *State, msg string)
}

var (
	loginAttempt = attempt{
		name:     "login",
		messages: oauthmodel.LoginMessages,
		setError: func(st *State, msg string) { st.LoginError = msg },
	}
	signupAttempt = attempt{
		name:     "signup",
		messages: oauthmodel.SignupMessages,
		setError: func(st *State, msg string) { st.SignupError = msg },
	}
)

// Login exchanges username and password for tokens with the password grant.
// It reports success; on failure the session is cleared and LoginError says why.
func (s *Store) Login(ctx context.Context, username, password string) bool {
	return s.authenticate(ctx, loginAttempt, func(ctx context.Context) (oauthmodel.TokenResponse, error) {
		return s.api.ExchangePassword(ctx, username, password)
	})
}

// Signup registers an account and signs in with the issued tokens.
// It reports success; on failure the session is cleared and SignupError says why.
func (s *Store) Signup(ctx context.Context, email, password string) bool {
	return s.authenticate(ctx, signupAttempt, func(ctx context.Context) (oauthmodel.TokenResponse, error) {
		return s.api.Signup(ctx, email, password)
	})
}

func (s *Store) authenticate(ctx context.Context, a attempt, exchange exchangeFunc) bool {
	s.mu.Lock()
	a.setError(&s.state, "")
	s.mu.Unlock()

	tokens, err := exchange(ctx)
	if err == nil {
		err = tokens.Validate()
	}
	if err == nil {
		err = s.establish(ctx, tokens)
	}
	if err != nil {
		s.fail(ctx, a, err)
		return false
	}

	if err := s.fetchCurrentUser(ctx); oauthmodel.IsUnauthorized(err) {
		// the profile fetch already logged the session out
		s.mu.Lock()
		a.setError(&s.state, a.messages.NoResponse)
		s.mu.Unlock()
		s.logger.Warn().Str("attempt", a.name).Msg("issued token rejected by profile endpoint")
		return false
	}

	snapshot := s.Snapshot()
	if !snapshot.IsAuthenticated || snapshot.AccessToken != tokens.AccessToken {
		// a concurrent action replaced this session; the last writer owns navigation
		s.logger.Debug().Str("attempt", a.name).Msg("session superseded before navigation")
		return true
	}
	s.currentObserver().SessionEstablished(ctx, snapshot)
	return true
}

// establish stores the tokens in memory and storage as one step.
func (s *Store) establish(ctx context.Context, tokens oauthmodel.TokenResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loginErr, signupErr := s.state.LoginError, s.state.SignupError
	s.state = State{
		AccessToken:     tokens.AccessToken,
		RefreshToken:    tokens.RefreshToken,
		IsAuthenticated: true,
		LoginError:      loginErr,
		SignupError:     signupErr,
	}
	if err := s.persistTokensLocked(ctx); err != nil {
		return err
	}
	// the previous user's profile must not outlive its tokens
	if err := s.persistUserLocked(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) fail(ctx context.Context, a attempt, err error) {
	msg := oauthmodel.Describe(err, a.messages)
	s.logger.Info().Err(err).Str("attempt", a.name).Msg("authentication failed")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
	a.setError(&s.state, msg)
}

// FetchCurrentUser loads the profile for the current token. A 401 logs the session out;
// other failures are logged and leave the session as it was.
func (s *Store) FetchCurrentUser(ctx context.Context) {
	_ = s.fetchCurrentUser(ctx)
}

func (s *Store) fetchCurrentUser(ctx context.Context) error {
	token := s.AccessToken()
	if token == "" {
		return apperrors.ErrNoAccessToken
	}

	profile, err := s.api.CurrentUser(ctx, token)
	if oauthmodel.IsUnauthorized(err) {
		s.logger.Info().Err(err).Msg("access token rejected, logging out")
		s.logoutIfToken(ctx, token)
		return err
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("fetching current user")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.AccessToken != token {
		s.logger.Debug().Msg("dropping profile fetched for a replaced token")
		return apperrors.ErrStaleProfile
	}
	s.state.CurrentUser = profile.Clone()
	if err := s.persistUserLocked(ctx); err != nil {
		s.logger.Err(err).Msg("persisting current user")
	}
	return nil
}

// Logout clears the session and its storage and tells the observer. Calling it again is harmless.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.clearLocked(ctx)
	observer := s.observer
	s.mu.Unlock()

	observer.SessionCleared(ctx)
}

// logoutIfToken logs out only while token is still the session's token.
func (s *Store) logoutIfToken(ctx context.Context, token string) {
	s.mu.Lock()
	if s.state.AccessToken != token {
		s.mu.Unlock()
		return
	}
	s.clearLocked(ctx)
	observer := s.observer
	s.mu.Unlock()

	observer.SessionCleared(ctx)
}

// InitializeAuth fetches the profile when a rehydrated session has tokens but no user.
func (s *Store) InitializeAuth(ctx context.Context) {
	s.mu.RLock()
	needsProfile := s.state.AccessToken != "" && s.state.CurrentUser == nil
	s.mu.RUnlock()

	if needsProfile {
		s.FetchCurrentUser(ctx)
	}
}
