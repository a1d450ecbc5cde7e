package oauthmodel

import "errors"

var (
	ErrUnsupportedTokenType = errors.New("unsupported token type")
	ErrMissingAccessToken   = errors.New("token response missing access_token")
)
