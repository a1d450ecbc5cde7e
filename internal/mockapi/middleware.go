package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/cmp-client/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.Profile
const ContextKeyUser ContextKey = "user"

// ChainMiddleware wraps routeFunction so the first middleware runs first.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the stack every route gets, followed by any extra middleware.
func (s *Server) APIMiddleware(route string, mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.FaultMiddleware(route),
	}
	return append(chained, mw...)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		event := s.logger.Debug()
		if s.env == "DEV" {
			event = s.logger.Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("mock api request")
	}
}

// FaultMiddleware counts calls to route and answers with an injected fault when one is pending.
func (s *Server) FaultMiddleware(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fault := s.takeFault(route)
			if fault == nil {
				next(w, r)
				return
			}
			if fault.Body != "" {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
			}
			w.WriteHeader(fault.Status)
			_, _ = w.Write([]byte(fault.Body))
		}
	}
}

// RequireAuth is middleware that validates a Bearer access token and loads its user
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeUnauthorized(w, "Not authenticated")
				return
			}

			subject, err := s.parseAccessToken(token)
			if errors.Is(err, errInvalidTokenType) {
				writeDetail(w, http.StatusUnauthorized, "Invalid token type")
				return
			}
			if err != nil {
				writeUnauthorized(w, "Could not validate credentials")
				return
			}

			profile, err := s.users.getByID(subject)
			if err != nil {
				writeDetail(w, http.StatusNotFound, "User not found")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, profile)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin rejects callers whose role is not admin. It must run after RequireAuth.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !currentUser(r).IsAdmin() {
				writeDetail(w, http.StatusForbidden, "Forbidden")
				return
			}
			next(w, r)
		}
	}
}

func currentUser(r *http.Request) *users.Profile {
	profile, _ := r.Context().Value(ContextKeyUser).(*users.Profile)
	return profile
}
