package session

import (
	"context"

	"github.com/jrsteele09/cmp-client/users"
)

// State is a point-in-time copy of the session. Empty strings mean absent.
type State struct {
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	CurrentUser     *users.Profile
	LoginError      string
	SignupError     string
}

func (st State) clone() State {
	st.CurrentUser = st.CurrentUser.Clone()
	return st
}

// Observer is told when a session starts or ends so navigation can follow.
type Observer interface {
	SessionEstablished(ctx context.Context, state State)
	SessionCleared(ctx context.Context)
}

// NopObserver ignores every notification.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) SessionEstablished(context.Context, State) {}
func (NopObserver) SessionCleared(context.Context)            {}
