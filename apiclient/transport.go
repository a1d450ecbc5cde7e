package apiclient

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
)

// TokenSource yields the access token to present on outgoing requests.
// An empty string means "no session": the request goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) AccessToken() string {
	return f()
}

// AuthTransport attaches "Authorization: Bearer <token>" to every request
// while the source holds a token. It never retries and never refreshes.
type AuthTransport struct {
	Source TokenSource
	Base   http.RoundTripper
}

var _ http.RoundTripper = (*AuthTransport)(nil)

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())

	if r.Header.Get(headerRequestID) == "" {
		r.Header.Set(headerRequestID, uuid.NewString())
	}

	if t.Source != nil && r.Header.Get(headerAuthorization) == "" {
		if token := t.Source.AccessToken(); token != "" {
			setBearer(r, token)
		}
	}

	return t.base().RoundTrip(r)
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func setBearer(r *http.Request, accessToken string) {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	tok.SetAuthHeader(r)
}
