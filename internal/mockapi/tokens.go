package mockapi

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

var (
	errInvalidToken     = errors.New("invalid token")
	errInvalidTokenType = errors.New("invalid token type")
)

// mintToken signs the same claim set the platform issues: sub, exp, type.
// ver ties the token to the server's revocation generation.
func (s *Server) mintToken(subject, kind string, ttl time.Duration) (string, error) {
	claims := jwtlib.MapClaims{
		"sub":  subject,
		"exp":  s.nowTime().Add(ttl).Unix(),
		"type": kind,
		"ver":  s.tokenGeneration.Load(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// parseAccessToken validates signature, expiry, type and generation and returns the subject.
func (s *Server) parseAccessToken(raw string) (string, error) {
	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.nowTime),
	)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	if kind, _ := claims["type"].(string); kind != tokenKindAccess {
		return "", errInvalidTokenType
	}
	if ver, _ := claims["ver"].(float64); int64(ver) != s.tokenGeneration.Load() {
		return "", errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}
