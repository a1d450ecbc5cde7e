package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
)

// Claims are the fields of the access token worth showing to a user.
type Claims struct {
	Subject   string
	Type      string
	ExpiresAt time.Time
}

// Expired reports whether the token had expired at now. Tokens without exp never expire.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// AccessClaims decodes the access token without checking its signature.
// The API remains the only judge of validity; this is for display.
func (s *Store) AccessClaims() (Claims, error) {
	token := s.AccessToken()
	if token == "" {
		return Claims{}, apperrors.ErrNoAccessToken
	}

	mapClaims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, apperrors.Wrapf(err, "[Store AccessClaims] decoding access token")
	}

	var claims Claims
	claims.Subject, _ = mapClaims.GetSubject()
	if kind, ok := mapClaims["type"].(string); ok {
		claims.Type = kind
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
