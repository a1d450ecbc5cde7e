package mockapi

// Route path constants, relative to the server's path prefix
const (
	// DefaultPathPrefix matches the platform's versioned API root.
	DefaultPathPrefix = "/api/v1"

	// Auth Routes
	RouteToken  = "/token"
	RouteSignup = "/signup"

	// User Routes
	RouteCurrentUser = "/users/me"
	RouteUsers       = "/users"

	// Platform Routes
	RouteProjects = "/projects"
	RouteProject  = "/projects/{projectId}"
	RouteAudit    = "/audit"
)
