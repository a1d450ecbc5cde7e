package guard

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Route is one navigable view. Parent makes it nested; requirements of every ancestor apply.
type Route struct {
	Name    string
	Pattern string // net/http.ServeMux path pattern, e.g. "/project/{projectId}"
	Meta    Meta
	Parent  *Route
}

// Effective merges the route's requirements with its ancestors'.
func (r *Route) Effective() Meta {
	var meta Meta
	for cur := r; cur != nil; cur = cur.Parent {
		meta = meta.Merge(cur.Meta)
	}
	return meta
}

// Route names of the console.
const (
	RouteHome          = "home"
	RouteProjects      = "projects"
	RouteProjectDetail = "project-detail"
	RouteUsers         = "users"
	RouteAudit         = "audit"
	RouteLogin         = "login"
	RouteSignup        = "signup"
)

// DefaultRoutes is the console's route table.
func DefaultRoutes() []*Route {
	return []*Route{
		{Name: RouteHome, Pattern: "/{$}", Meta: Meta{RequiresAuth: true}},
		{Name: RouteProjects, Pattern: "/projects", Meta: Meta{RequiresAuth: true}},
		{Name: RouteProjectDetail, Pattern: "/project/{projectId}", Meta: Meta{RequiresAuth: true}},
		{Name: RouteUsers, Pattern: "/users", Meta: Meta{RequiresAuth: true, RequiresAdmin: true}},
		{Name: RouteAudit, Pattern: "/audit", Meta: Meta{RequiresAuth: true, RequiresAdmin: true}},
		{Name: RouteLogin, Pattern: LoginPath, Meta: Meta{GuestOnly: true}},
		{Name: RouteSignup, Pattern: "/signup", Meta: Meta{GuestOnly: true}},
	}
}

// Table resolves paths to routes with net/http.ServeMux pattern matching.
type Table struct {
	mux    *http.ServeMux
	byPat  map[string]*Route
	byName map[string]*Route
}

// NewTable builds a table. Duplicate names and invalid or conflicting patterns are errors.
func NewTable(routes []*Route) (t *Table, err error) {
	t = &Table{
		mux:    http.NewServeMux(),
		byPat:  make(map[string]*Route, len(routes)),
		byName: make(map[string]*Route, len(routes)),
	}

	// ServeMux reports bad patterns by panicking
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("[guard NewTable] %v", r)
		}
	}()

	for _, route := range routes {
		if route.Name == "" {
			return nil, fmt.Errorf("[guard NewTable] route %q has no name", route.Pattern)
		}
		if _, dup := t.byName[route.Name]; dup {
			return nil, fmt.Errorf("[guard NewTable] duplicate route name %q", route.Name)
		}
		pattern := "GET " + strings.ToLower(route.Pattern)
		t.mux.HandleFunc(pattern, func(http.ResponseWriter, *http.Request) {})
		t.byPat[pattern] = route
		t.byName[route.Name] = route
	}
	return t, nil
}

// MustTable is NewTable for static tables.
func MustTable(routes []*Route) *Table {
	t, err := NewTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Match finds the route for fullPath (query and fragment ignored). Matching
// is case-insensitive and tolerates one trailing slash, so "/Users/" is the
// users route. Unknown paths return a nil route with no requirements.
func (t *Table) Match(fullPath string) (*Route, Meta) {
	u, err := url.Parse(fullPath)
	if err != nil {
		return nil, Meta{}
	}
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: matchPath(u.Path)}}
	_, pattern := t.mux.Handler(req)
	route, ok := t.byPat[pattern]
	if !ok {
		return nil, Meta{}
	}
	return route, route.Effective()
}

// Lookup returns the route registered under name.
func (t *Table) Lookup(name string) (*Route, bool) {
	route, ok := t.byName[name]
	return route, ok
}

func matchPath(p string) string {
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return strings.ToLower(p)
}
