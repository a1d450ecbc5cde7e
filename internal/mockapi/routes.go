package mockapi

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteFunc("POST", RouteToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware(RouteToken)...))
	s.RegisterRouteFunc("POST", RouteSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware(RouteSignup)...))

	// USERS
	s.RegisterRouteFunc("GET", RouteCurrentUser, ChainMiddleware(s.CurrentUserHandler(), s.APIMiddleware(RouteCurrentUser, s.RequireAuth())...))
	s.RegisterRouteFunc("GET", RouteUsers, ChainMiddleware(s.ListUsersHandler(), s.APIMiddleware(RouteUsers, s.RequireAuth(), s.RequireAdmin())...))

	// PLATFORM
	s.RegisterRouteFunc("GET", RouteProjects, ChainMiddleware(s.ListProjectsHandler(), s.APIMiddleware(RouteProjects, s.RequireAuth())...))
	s.RegisterRouteFunc("POST", RouteProjects, ChainMiddleware(s.CreateProjectHandler(), s.APIMiddleware(RouteProjects, s.RequireAuth())...))
	s.RegisterRouteFunc("GET", RouteProject, ChainMiddleware(s.GetProjectHandler(), s.APIMiddleware(RouteProject, s.RequireAuth())...))
	s.RegisterRouteFunc("GET", RouteAudit, ChainMiddleware(s.AuditHandler(), s.APIMiddleware(RouteAudit, s.RequireAuth(), s.RequireAdmin())...))
}
