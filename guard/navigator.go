package guard

import (
	"context"
	"net/url"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
	"github.com/jrsteele09/cmp-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxRedirects = 5

// Resolution describes where a navigation ended up and why.
type Resolution struct {
	Requested string
	Final     string
	Route     *Route // nil for paths outside the table
	Redirects []Decision
}

// Redirected reports whether the guard sent the navigation elsewhere.
func (r Resolution) Redirected() bool {
	return len(r.Redirects) > 0
}

// Navigator applies the guard to every transition and follows session changes.
type Navigator struct {
	mu            sync.Mutex
	routes        *Table
	session       SessionView
	current       string
	history       []string
	pendingReturn string
	logger        zerolog.Logger
}

var _ session.Observer = (*Navigator)(nil)

// NavigatorOption defines a function type to modify the Navigator instance.
type NavigatorOption func(*Navigator)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) NavigatorOption {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithStartPath sets the location before the first navigation.
func WithStartPath(path string) NavigatorOption {
	return func(n *Navigator) {
		n.current = path
	}
}

// NewNavigator creates a navigator over routes reading view for session state.
func NewNavigator(routes *Table, view SessionView, options ...NavigatorOption) *Navigator {
	n := &Navigator{
		routes:  routes,
		session: view,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(n)
	}
	n.logger = n.logger.With().Str("component", "navigator").Logger()
	return n
}

// Navigate moves to fullPath, following guard redirects until a route allows entry.
func (n *Navigator) Navigate(ctx context.Context, fullPath string) (Resolution, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigateLocked(ctx, fullPath)
}

func (n *Navigator) navigateLocked(_ context.Context, fullPath string) (Resolution, error) {
	res := Resolution{Requested: fullPath}
	subject := SubjectOf(n.session)

	path := fullPath
	for range maxRedirects + 1 {
		route, meta := n.routes.Match(path)
		decision := Decide(meta, subject, path)
		if decision.Outcome == Allow {
			n.commitLocked(path, route)
			res.Final = path
			res.Route = route
			return res, nil
		}

		n.logger.Debug().
			Str("from", path).
			Str("to", decision.Target).
			Stringer("outcome", decision.Outcome).
			Msg("navigation redirected")
		if decision.Outcome == RedirectLogin {
			n.pendingReturn = path
		}
		res.Redirects = append(res.Redirects, decision)
		path = decision.Target
	}
	return res, apperrors.Wrapf(apperrors.ErrRedirectLoop, "[Navigator Navigate] %s", fullPath)
}

func (n *Navigator) commitLocked(path string, route *Route) {
	if route != nil && route.Name == RouteLogin {
		if u, err := url.Parse(path); err == nil {
			if ret := u.Query().Get(RedirectParam); isLocalPath(ret) {
				n.pendingReturn = ret
			}
		}
	}
	if n.current != "" && n.current != path {
		n.history = append(n.history, n.current)
	}
	n.current = path
}

// isLocalPath rejects anything that could leave the console, such as "//host" or "https://host".
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}

// Current is the path last navigated to.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History lists previously visited paths, oldest first.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// PendingReturn is the path a login will return to, if any.
func (n *Navigator) PendingReturn() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pendingReturn
}

// SessionEstablished moves to the remembered return path, or home.
func (n *Navigator) SessionEstablished(ctx context.Context, _ session.State) {
	n.mu.Lock()
	defer n.mu.Unlock()

	target := HomePath
	if n.pendingReturn != "" {
		target = n.pendingReturn
		n.pendingReturn = ""
	}
	if _, err := n.navigateLocked(ctx, target); err != nil {
		n.logger.Err(err).Msg("navigating after login")
	}
}

// SessionCleared moves to the login view.
func (n *Navigator) SessionCleared(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.pendingReturn = ""
	if _, err := n.navigateLocked(ctx, LoginPath); err != nil {
		n.logger.Err(err).Msg("navigating after logout")
	}
}
