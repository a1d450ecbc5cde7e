package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/jrsteele09/cmp-client/users"
	"golang.org/x/oauth2"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ExchangePassword runs the resource-owner password grant against the token
// endpoint: a form-encoded POST of username, password and grant_type=password.
func (c *Client) ExchangePassword(ctx context.Context, username, password string) (oauthmodel.TokenResponse, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.URL(c.tokenPath),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return oauthmodel.TokenResponse{}, oauthmodel.NewResponseError(retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return oauthmodel.TokenResponse{}, fmt.Errorf("[Client ExchangePassword] %w", err)
	}

	return oauthmodel.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}, nil
}

// Signup registers a new account with a JSON body and returns the issued tokens.
func (c *Client) Signup(ctx context.Context, email, password string) (oauthmodel.TokenResponse, error) {
	var resp oauthmodel.TokenResponse
	if err := c.Post(ctx, c.signupPath, signupRequest{Email: email, Password: password}, &resp); err != nil {
		return oauthmodel.TokenResponse{}, err
	}
	return resp, nil
}

// CurrentUser fetches the profile that owns accessToken.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*users.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(c.currentUserPath), nil)
	if err != nil {
		return nil, fmt.Errorf("[Client CurrentUser] building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		setBearer(req, accessToken)
	}

	var profile users.Profile
	if err := c.send(req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
