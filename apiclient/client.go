package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/cmp-client/internal/config"
	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 1 << 20

// Client talks JSON to the platform API.
type Client struct {
	baseURL         string
	tokenPath       string
	signupPath      string
	currentUserPath string
	http            *http.Client
	logger          zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*clientOptions)

type clientOptions struct {
	source  TokenSource
	base    http.RoundTripper
	timeout time.Duration
	logger  *zerolog.Logger
}

// WithTokenSource makes every request carry the source's bearer token.
func WithTokenSource(source TokenSource) ClientOption {
	return func(o *clientOptions) {
		o.source = source
	}
}

// WithBaseTransport replaces http.DefaultTransport underneath the auth transport.
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.base = rt
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = &logger
	}
}

// New creates a client for the API described by cfg.
func New(cfg config.APIConfig, options ...ClientOption) *Client {
	opts := clientOptions{timeout: cfg.GetRequestTimeout()}
	for _, opt := range options {
		opt(&opts)
	}

	logger := log.Logger
	if opts.logger != nil {
		logger = *opts.logger
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.GetAPIBaseURL(), "/"),
		tokenPath:       cfg.GetTokenPath(),
		signupPath:      cfg.GetSignupPath(),
		currentUserPath: cfg.GetCurrentUserPath(),
		http: &http.Client{
			Timeout:   opts.timeout,
			Transport: &AuthTransport{Source: opts.source, Base: opts.base},
		},
		logger: logger.With().Str("component", "apiclient").Logger(),
	}
}

// HTTPClient exposes the underlying authorized *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// URL resolves path against the base URL. Absolute URLs pass through untouched.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends body as JSON (when non-nil) and decodes a 2xx JSON answer into out
// (when non-nil). Non-2xx answers come back as *oauthmodel.ResponseError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[Client Do] encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return fmt.Errorf("[Client Do] building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
		return fmt.Errorf("[Client send] %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return oauthmodel.NewResponseError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("[Client send] decoding %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
