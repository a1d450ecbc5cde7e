package guard

import "net/url"

const (
	HomePath  = "/"
	LoginPath = "/login"

	// RedirectParam carries the originally requested path on a login redirect.
	RedirectParam = "redirect"
)

// Meta is what a route declares about who may enter it.
type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
	GuestOnly     bool
}

// Merge ORs two sets of requirements, as a nested route inherits its ancestors'.
func (m Meta) Merge(other Meta) Meta {
	return Meta{
		RequiresAuth:  m.RequiresAuth || other.RequiresAuth,
		RequiresAdmin: m.RequiresAdmin || other.RequiresAdmin,
		GuestOnly:     m.GuestOnly || other.GuestOnly,
	}
}

// Subject is the session state the guard reads.
type Subject struct {
	IsAuthenticated bool
	IsAdmin         bool
}

// SessionView is anything that can answer the guard's two questions, such as *session.Store.
type SessionView interface {
	IsLoggedIn() bool
	IsAdmin() bool
}

// SubjectOf reads a Subject from view. A nil view is an anonymous visitor.
func SubjectOf(view SessionView) Subject {
	if view == nil {
		return Subject{}
	}
	return Subject{IsAuthenticated: view.IsLoggedIn(), IsAdmin: view.IsAdmin()}
}

type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict. Target is empty for Allow.
type Decision struct {
	Outcome Outcome
	Target  string
}

// LoginTarget is the login path remembering fullPath for the return trip.
func LoginTarget(fullPath string) string {
	return LoginPath + "?" + url.Values{RedirectParam: {fullPath}}.Encode()
}

// Decide applies the access table. It is pure and total: every input maps to one outcome.
func Decide(meta Meta, subject Subject, fullPath string) Decision {
	switch {
	case meta.RequiresAuth && !subject.IsAuthenticated:
		return Decision{Outcome: RedirectLogin, Target: LoginTarget(fullPath)}
	case meta.RequiresAuth && meta.RequiresAdmin && !subject.IsAdmin:
		return Decision{Outcome: RedirectHome, Target: HomePath}
	case meta.RequiresAuth:
		return Decision{Outcome: Allow}
	case meta.GuestOnly && subject.IsAuthenticated:
		return Decision{Outcome: RedirectHome, Target: HomePath}
	default:
		return Decision{Outcome: Allow}
	}
}
