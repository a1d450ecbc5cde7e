package oauthmodel

import (
	"fmt"
	"strings"
)

// BearerTokenType is the only token type the console accepts.
const BearerTokenType = "bearer"

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// PasswordGrant exchanges a username and password for tokens.
	// Token request is form-encoded: username, password, grant_type=password
	// Returns: access_token, refresh_token, token_type
	PasswordGrant GrantType = "password"
)

// TokenResponse represents the body returned by POST /token and POST /signup.
type TokenResponse struct {
	// AccessToken is the JWT presented as "Authorization: Bearer <access_token>".
	// Lifespan: short-lived, carries sub, exp and type=access claims
	AccessToken string `json:"access_token"`

	// RefreshToken is a long-lived JWT (type=refresh).
	// Usage: kept in the session but never exchanged automatically
	RefreshToken string `json:"refresh_token"`

	// TokenType tells the client how to present the access token.
	// Must equal "bearer" (case-insensitive); anything else fails closed
	TokenType string `json:"token_type"`
}

// IsBearer reports whether the response declares the bearer scheme.
func (t TokenResponse) IsBearer() bool {
	return strings.EqualFold(strings.TrimSpace(t.TokenType), BearerTokenType)
}

// Validate applies the protocol-integrity checks a response must pass before
// any of its tokens are used. The token type is checked even when tokens are present.
func (t TokenResponse) Validate() error {
	if !t.IsBearer() {
		return fmt.Errorf("[TokenResponse Validate] %q: %w", t.TokenType, ErrUnsupportedTokenType)
	}
	if t.AccessToken == "" {
		return ErrMissingAccessToken
	}
	return nil
}
