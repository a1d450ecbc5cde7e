package session

import (
	"context"
	"encoding/json"
	"strconv"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
	"github.com/jrsteele09/cmp-client/storage"
	"github.com/jrsteele09/cmp-client/users"
)

// readKey returns "" for an absent key.
func (s *Store) readKey(ctx context.Context, key string) (string, error) {
	value, err := s.repo.Get(ctx, key)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrapf(err, "[Store readKey] %s", key)
	}
	return value, nil
}

// rehydrate loads the persisted record. Unparsable values count as absent and a
// record that breaks the session invariants is discarded along with its storage.
func (s *Store) rehydrate(ctx context.Context) error {
	token, err := s.readKey(ctx, storage.KeyToken)
	if err != nil {
		return err
	}
	refresh, err := s.readKey(ctx, storage.KeyRefreshToken)
	if err != nil {
		return err
	}
	rawAuth, err := s.readKey(ctx, storage.KeyIsAuthenticated)
	if err != nil {
		return err
	}
	rawUser, err := s.readKey(ctx, storage.KeyUser)
	if err != nil {
		return err
	}

	var authenticated bool
	if rawAuth != "" {
		if json.Unmarshal([]byte(rawAuth), &authenticated) != nil {
			s.logger.Warn().Str("key", storage.KeyIsAuthenticated).Msg("ignoring unparsable persisted value")
			authenticated = false
		}
	}

	var profile *users.Profile
	if rawUser != "" {
		var p users.Profile
		if err := json.Unmarshal([]byte(rawUser), &p); err != nil {
			s.logger.Warn().Err(err).Str("key", storage.KeyUser).Msg("ignoring unparsable persisted value")
		} else {
			profile = &p
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case authenticated && token != "":
		s.state = State{
			AccessToken:     token,
			RefreshToken:    refresh,
			IsAuthenticated: true,
			CurrentUser:     profile,
		}
		if profile == nil && rawUser != "" {
			s.deleteKeyLocked(ctx, storage.KeyUser)
		}
	case !authenticated && token == "" && refresh == "" && rawUser == "":
		s.state = State{}
	default:
		s.logger.Warn().Err(apperrors.ErrInvalidPersisted).
			Bool("authenticated", authenticated).
			Bool("has_token", token != "").
			Msg("discarding persisted session")
		s.clearLocked(ctx)
	}
	return nil
}

// persistTokensLocked writes the three token keys. The caller holds s.mu.
func (s *Store) persistTokensLocked(ctx context.Context) error {
	if err := s.repo.Set(ctx, storage.KeyToken, s.state.AccessToken); err != nil {
		return apperrors.Wrapf(err, "[Store persistTokens] %s", storage.KeyToken)
	}
	if s.state.RefreshToken == "" {
		if err := s.repo.Delete(ctx, storage.KeyRefreshToken); err != nil {
			return apperrors.Wrapf(err, "[Store persistTokens] %s", storage.KeyRefreshToken)
		}
	} else if err := s.repo.Set(ctx, storage.KeyRefreshToken, s.state.RefreshToken); err != nil {
		return apperrors.Wrapf(err, "[Store persistTokens] %s", storage.KeyRefreshToken)
	}
	if err := s.repo.Set(ctx, storage.KeyIsAuthenticated, strconv.FormatBool(s.state.IsAuthenticated)); err != nil {
		return apperrors.Wrapf(err, "[Store persistTokens] %s", storage.KeyIsAuthenticated)
	}
	return nil
}

// persistUserLocked writes the profile. The caller holds s.mu.
func (s *Store) persistUserLocked(ctx context.Context) error {
	if s.state.CurrentUser == nil {
		return s.repo.Delete(ctx, storage.KeyUser)
	}
	data, err := json.Marshal(s.state.CurrentUser)
	if err != nil {
		return apperrors.Wrapf(err, "[Store persistUser] encoding")
	}
	if err := s.repo.Set(ctx, storage.KeyUser, string(data)); err != nil {
		return apperrors.Wrapf(err, "[Store persistUser] %s", storage.KeyUser)
	}
	return nil
}

func (s *Store) deleteKeyLocked(ctx context.Context, key string) {
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Err(err).Str("key", key).Msg("removing persisted session value")
	}
}

// clearLocked resets every field, error messages included, and removes every
// persisted key. Storage failures are logged; memory is always cleared.
func (s *Store) clearLocked(ctx context.Context) {
	s.state = State{}
	for _, key := range storage.SessionKeys {
		s.deleteKeyLocked(ctx, key)
	}
}
