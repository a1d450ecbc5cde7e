package mockapi

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/cmp-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultAccessTokenExpiry  = 30 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
	defaultSecret             = "cmp-mock-api-secret"
)

// Project is the small project record the fake API lists.
type Project struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	OwnerID        uuid.UUID `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	ResourcesTotal int       `json:"resources_total"`
}

// AuditEvent is one entry of the fake audit log.
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	ProjectID  *uuid.UUID     `json:"project_id"`
	Action     string         `json:"action"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Details    map[string]any `json:"details"`
}

// Fault forces a route to answer with a canned status and body.
type Fault struct {
	Status int
	Body   string
	// Times is the number of calls the fault applies to. Zero or less is unlimited.
	Times int
}

type seedUser struct {
	email    string
	password string
	role     users.RoleType
}

// Server is an in-process stand-in for the platform API.
type Server struct {
	env        string
	prefix     string
	mux        *http.ServeMux
	routes     []string
	users      *userRepo
	secret     []byte
	tokenType  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
	seeds      []seedUser

	tokenGeneration atomic.Int64

	lock     sync.Mutex
	faults   map[string]*Fault
	calls    map[string]int
	projects []Project
	audit    []AuditEvent
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithEnv sets the environment name. Routes are logged only in DEV.
func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = strings.ToUpper(env)
	}
}

// WithPathPrefix mounts every route under prefix (DefaultPathPrefix when unset).
func WithPathPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithTokenType overrides the token_type field the token and signup endpoints return.
func WithTokenType(tokenType string) Option {
	return func(s *Server) {
		s.tokenType = tokenType
	}
}

// WithAccessTokenExpiry sets the lifetime of minted access tokens.
func WithAccessTokenExpiry(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithSecret sets the HS256 signing key.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithClock replaces time.Now for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithUser seeds an account.
func WithUser(email, password string, role users.RoleType) Option {
	return func(s *Server) {
		s.seeds = append(s.seeds, seedUser{email: email, password: password, role: role})
	}
}

// New creates the fake API with its routes registered.
func New(options ...Option) (*Server, error) {
	s := &Server{
		env:        "TEST",
		prefix:     DefaultPathPrefix,
		mux:        http.NewServeMux(),
		users:      newUserRepo(),
		secret:     []byte(defaultSecret),
		tokenType:  "bearer",
		accessTTL:  defaultAccessTokenExpiry,
		refreshTTL: defaultRefreshTokenExpiry,
		now:        time.Now,
		logger:     log.Logger,
		faults:     make(map[string]*Fault),
		calls:      make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}

	for _, seed := range s.seeds {
		if _, err := s.users.create(seed.email, seed.password, seed.role, s.nowTime()); err != nil {
			return nil, err
		}
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RegisterRouteFunc mounts handler under the server's prefix.
func (s *Server) RegisterRouteFunc(method, route string, handler http.HandlerFunc) {
	pattern := method + " " + s.prefix + route
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// InjectFault makes route (one of the Route constants) fail until the fault is spent.
func (s *Server) InjectFault(route string, fault Fault) {
	s.lock.Lock()
	defer s.lock.Unlock()
	f := fault
	s.faults[route] = &f
}

// ClearFaults removes every injected fault.
func (s *Server) ClearFaults() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.faults = make(map[string]*Fault)
}

// Calls reports how many requests reached route.
func (s *Server) Calls(route string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[route]
}

// SetRole changes an account's role.
func (s *Server) SetRole(email string, role users.RoleType) error {
	return s.users.setRole(email, role)
}

// RevokeTokens invalidates every access token issued so far.
func (s *Server) RevokeTokens() {
	s.tokenGeneration.Add(1)
}

// IssueAccessToken mints an access token for an existing account.
func (s *Server) IssueAccessToken(email string) (string, error) {
	for _, p := range s.users.list() {
		if strings.EqualFold(p.Email, email) {
			return s.mintToken(p.ID.String(), tokenKindAccess, s.accessTTL)
		}
	}
	return "", errUserNotFound
}

func (s *Server) nowTime() time.Time {
	return s.now()
}

func (s *Server) takeFault(route string) *Fault {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.calls[route]++
	f, ok := s.faults[route]
	if !ok {
		return nil
	}
	out := *f
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.faults, route)
		}
	}
	return &out
}

func (s *Server) addProject(owner uuid.UUID, name string) Project {
	p := Project{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   owner,
		CreatedAt: s.nowTime().UTC(),
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.projects = append(s.projects, p)
	return p
}

func (s *Server) listProjects() []Project {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Project{}, s.projects...)
}

func (s *Server) findProject(id string) (Project, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, p := range s.projects {
		if p.ID.String() == id {
			return p, true
		}
	}
	return Project{}, false
}

func (s *Server) recordAudit(userID uuid.UUID, projectID *uuid.UUID, action, objectType, objectID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.audit = append(s.audit, AuditEvent{
		ID:         uuid.New(),
		UserID:     userID,
		ProjectID:  projectID,
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		Timestamp:  s.nowTime().UTC(),
		Details:    map[string]any{},
	})
}

func (s *Server) listAudit() []AuditEvent {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]AuditEvent{}, s.audit...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, _ := strings.Cut(route, " ")
		s.logger.Info().Msgf("[%-19s] %s", colourMethod(method), path)
	}
}
