package mockapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/cmp-client/internal/mockapi"
	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/jrsteele09/cmp-client/users"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-pass"
)

type testFixture struct {
	api     *mockapi.Server
	httpSrv *httptest.Server
	base    string
}

func setupTestFixture(t *testing.T, opts ...mockapi.Option) *testFixture {
	opts = append([]mockapi.Option{mockapi.WithUser(adminEmail, adminPassword, users.RoleAdmin)}, opts...)
	api, err := mockapi.New(opts...)
	require.NoError(t, err)

	httpSrv := httptest.NewServer(api)
	t.Cleanup(httpSrv.Close)

	return &testFixture{api: api, httpSrv: httpSrv, base: httpSrv.URL + mockapi.DefaultPathPrefix}
}

func (f *testFixture) token(t *testing.T, username, password string) *http.Response {
	form := url.Values{"username": {username}, "password": {password}, "grant_type": {"password"}}
	resp, err := http.PostForm(f.base+mockapi.RouteToken, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *testFixture) get(t *testing.T, route, accessToken string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, f.base+route, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *testFixture) signup(t *testing.T, body string) *http.Response {
	resp, err := http.Post(f.base+mockapi.RouteSignup, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeTokens(t *testing.T, resp *http.Response) oauthmodel.TokenResponse {
	var tokens oauthmodel.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	return tokens
}

func readDetail(t *testing.T, resp *http.Response) oauthmodel.APIError {
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return oauthmodel.ParseAPIError(body)
}

func TestToken_PasswordGrant(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.token(t, adminEmail, adminPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tokens := decodeTokens(t, resp)
	require.NoError(t, tokens.Validate())
	require.NotEmpty(t, tokens.RefreshToken)
	require.Equal(t, 1, f.api.Calls(mockapi.RouteToken))

	me := f.get(t, mockapi.RouteCurrentUser, tokens.AccessToken)
	require.Equal(t, http.StatusOK, me.StatusCode)

	var profile users.Profile
	require.NoError(t, json.NewDecoder(me.Body).Decode(&profile))
	require.Equal(t, adminEmail, profile.Email)
	require.Equal(t, users.RoleAdmin, profile.RoleID)
}

func TestToken_Errors(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("wrong password", func(t *testing.T) {
		resp := f.token(t, adminEmail, "nope")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		apiErr := readDetail(t, resp)
		require.Equal(t, "Incorrect email or password", apiErr.Detail)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := f.token(t, "", "")
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		apiErr := readDetail(t, resp)
		require.Equal(t, oauthmodel.FieldErrors, apiErr.Kind)
		require.Equal(t, "body.username - field required; body.password - field required", apiErr.Text(oauthmodel.LoginMessages))
	})
}

func TestSignup(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.signup(t, `{"email":"new@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tokens := decodeTokens(t, resp)

	me := f.get(t, mockapi.RouteCurrentUser, tokens.AccessToken)
	var profile users.Profile
	require.NoError(t, json.NewDecoder(me.Body).Decode(&profile))
	require.Equal(t, users.RoleViewer, profile.RoleID)

	t.Run("duplicate", func(t *testing.T) {
		resp := f.signup(t, `{"email":"new@example.com","password":"pw"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "User already registered", readDetail(t, resp).Detail)
	})

	t.Run("invalid email", func(t *testing.T) {
		resp := f.signup(t, `{"email":"nope","password":"pw"}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		require.Equal(t, "body.email - value is not a valid email address", readDetail(t, resp).Text(oauthmodel.SignupMessages))
	})
}

func TestRequireAuth(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("missing header", func(t *testing.T) {
		resp := f.get(t, mockapi.RouteCurrentUser, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Not authenticated", readDetail(t, resp).Detail)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := f.get(t, mockapi.RouteCurrentUser, "not-a-jwt")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Could not validate credentials", readDetail(t, resp).Detail)
	})

	t.Run("refresh token used as access", func(t *testing.T) {
		tokens := decodeTokens(t, f.token(t, adminEmail, adminPassword))
		resp := f.get(t, mockapi.RouteCurrentUser, tokens.RefreshToken)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid token type", readDetail(t, resp).Detail)
	})

	t.Run("revoked", func(t *testing.T) {
		tokens := decodeTokens(t, f.token(t, adminEmail, adminPassword))
		f.api.RevokeTokens()
		resp := f.get(t, mockapi.RouteCurrentUser, tokens.AccessToken)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequireAuth_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, mockapi.WithClock(func() time.Time { return now }), mockapi.WithAccessTokenExpiry(time.Minute))

	access, err := f.api.IssueAccessToken(adminEmail)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, f.get(t, mockapi.RouteCurrentUser, access).StatusCode)

	now = now.Add(2 * time.Minute)
	require.Equal(t, http.StatusUnauthorized, f.get(t, mockapi.RouteCurrentUser, access).StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	f := setupTestFixture(t, mockapi.WithUser("viewer@example.com", "pw", users.RoleViewer))

	viewer := decodeTokens(t, f.token(t, "viewer@example.com", "pw"))
	resp := f.get(t, mockapi.RouteAudit, viewer.AccessToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Forbidden", readDetail(t, resp).Detail)

	require.NoError(t, f.api.SetRole("viewer@example.com", users.RoleAdmin))
	require.Equal(t, http.StatusOK, f.get(t, mockapi.RouteAudit, viewer.AccessToken).StatusCode)
	require.Equal(t, http.StatusOK, f.get(t, mockapi.RouteUsers, viewer.AccessToken).StatusCode)
}

func TestProjects(t *testing.T) {
	f := setupTestFixture(t)
	tokens := decodeTokens(t, f.token(t, adminEmail, adminPassword))

	req, err := http.NewRequest(http.MethodPost, f.base+mockapi.RouteProjects, strings.NewReader(`{"name":"platform"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created mockapi.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "platform", created.Name)

	got := f.get(t, "/projects/"+created.ID.String(), tokens.AccessToken)
	require.Equal(t, http.StatusOK, got.StatusCode)

	missing := f.get(t, "/projects/does-not-exist", tokens.AccessToken)
	require.Equal(t, http.StatusNotFound, missing.StatusCode)

	var events []mockapi.AuditEvent
	audit := f.get(t, mockapi.RouteAudit, tokens.AccessToken)
	require.NoError(t, json.NewDecoder(audit.Body).Decode(&events))
	require.Len(t, events, 1)
	require.Equal(t, "project", events[0].ObjectType)
}

func TestInjectFault(t *testing.T) {
	f := setupTestFixture(t)
	f.api.InjectFault(mockapi.RouteToken, mockapi.Fault{Status: http.StatusBadGateway, Times: 1})

	require.Equal(t, http.StatusBadGateway, f.token(t, adminEmail, adminPassword).StatusCode)
	require.Equal(t, http.StatusOK, f.token(t, adminEmail, adminPassword).StatusCode)
	require.Equal(t, 2, f.api.Calls(mockapi.RouteToken))

	f.api.InjectFault(mockapi.RouteSignup, mockapi.Fault{Status: http.StatusBadRequest, Body: `{"message":"Email taken"}`})
	for range 2 {
		resp := f.signup(t, `{"email":"x@example.com","password":"pw"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "Email taken", readDetail(t, resp).Message)
	}

	f.api.ClearFaults()
	require.Equal(t, http.StatusCreated, f.signup(t, `{"email":"x@example.com","password":"pw"}`).StatusCode)
}

func TestWithTokenType(t *testing.T) {
	f := setupTestFixture(t, mockapi.WithTokenType("mac"))
	tokens := decodeTokens(t, f.token(t, adminEmail, adminPassword))
	require.Equal(t, "mac", tokens.TokenType)
	require.ErrorIs(t, tokens.Validate(), oauthmodel.ErrUnsupportedTokenType)
}
