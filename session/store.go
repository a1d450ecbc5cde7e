package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/cmp-client/apiclient"
	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/jrsteele09/cmp-client/storage"
	"github.com/jrsteele09/cmp-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AuthAPI is the slice of the platform API the session needs.
type AuthAPI interface {
	ExchangePassword(ctx context.Context, username, password string) (oauthmodel.TokenResponse, error)
	Signup(ctx context.Context, email, password string) (oauthmodel.TokenResponse, error)
	CurrentUser(ctx context.Context, accessToken string) (*users.Profile, error)
}

var _ AuthAPI = (*apiclient.Client)(nil)

// Store owns the authenticated session and keeps it written through to storage.
// Every action resolves to a bool or nothing; failures surface through LoginError and SignupError.
type Store struct {
	mu       sync.RWMutex
	state    State
	repo     storage.Repo
	api      AuthAPI
	observer Observer
	logger   zerolog.Logger
}

var _ apiclient.TokenSource = (*Store)(nil)

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithObserver registers the observer told about established and cleared sessions.
func WithObserver(observer Observer) Option {
	return func(s *Store) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store rehydrated from repo.
func New(ctx context.Context, repo storage.Repo, api AuthAPI, options ...Option) (*Store, error) {
	s := &Store{
		repo:     repo,
		api:      api,
		observer: NopObserver{},
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "session").Logger()

	if err := s.rehydrate(ctx); err != nil {
		return nil, fmt.Errorf("[session New] rehydrating: %w", err)
	}
	return s, nil
}

// SetObserver replaces the observer after construction, for collaborators that need the store first.
func (s *Store) SetObserver(observer Observer) {
	if observer == nil {
		observer = NopObserver{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

func (s *Store) currentObserver() Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observer
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Role is the current user's role, or "" when no profile is loaded.
func (s *Store) Role() users.RoleType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUser == nil {
		return ""
	}
	return s.state.CurrentUser.RoleID
}

func (s *Store) IsAdmin() bool {
	return s.Role() == users.RoleAdmin
}

func (s *Store) IsDevops() bool {
	return s.Role() == users.RoleDevops
}

func (s *Store) IsViewer() bool {
	return s.Role() == users.RoleViewer
}

// CurrentUser returns a copy of the loaded profile, or nil.
func (s *Store) CurrentUser() *users.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentUser.Clone()
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

func (s *Store) LoginError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoginError
}

func (s *Store) SignupError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SignupError
}

// Snapshot copies the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}
