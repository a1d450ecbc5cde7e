package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/jrsteele09/cmp-client/users"
)

type fieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

type credentials struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type projectCreate struct {
	Name *string `json:"name"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeValidation(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": errs})
}

func missingField(name string) fieldError {
	return fieldError{Loc: []any{"body", name}, Msg: "field required", Type: "value_error.missing"}
}

func (s *Server) issueTokens(w http.ResponseWriter, status int, profile *users.Profile) {
	access, err := s.mintToken(profile.ID.String(), tokenKindAccess, s.accessTTL)
	if err != nil {
		s.logger.Err(err).Msg("minting access token")
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	refresh, err := s.mintToken(profile.ID.String(), tokenKindRefresh, s.refreshTTL)
	if err != nil {
		s.logger.Err(err).Msg("minting refresh token")
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, status, oauthmodel.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    s.tokenType,
	})
}

// TokenHandler implements the form-encoded password grant.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeValidation(w, []fieldError{{Loc: []any{"body"}, Msg: "invalid form body", Type: "value_error"}})
			return
		}

		var errs []fieldError
		if grant := r.PostForm.Get("grant_type"); grant != "" && grant != string(oauthmodel.PasswordGrant) {
			errs = append(errs, fieldError{Loc: []any{"body", "grant_type"}, Msg: `string does not match regex "password"`, Type: "value_error.str.regex"})
		}
		username := r.PostForm.Get("username")
		password := r.PostForm.Get("password")
		if username == "" {
			errs = append(errs, missingField("username"))
		}
		if password == "" {
			errs = append(errs, missingField("password"))
		}
		if len(errs) > 0 {
			writeValidation(w, errs)
			return
		}

		profile, ok := s.users.authenticate(username, password)
		if !ok {
			writeUnauthorized(w, "Incorrect email or password")
			return
		}
		s.issueTokens(w, http.StatusOK, profile)
	}
}

// SignupHandler registers a viewer account from a JSON body and issues its tokens.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeValidation(w, []fieldError{{Loc: []any{"body", 0}, Msg: "Expecting value", Type: "value_error.jsondecode"}})
			return
		}

		var errs []fieldError
		switch {
		case req.Email == nil:
			errs = append(errs, missingField("email"))
		case !validEmail(*req.Email):
			errs = append(errs, fieldError{Loc: []any{"body", "email"}, Msg: "value is not a valid email address", Type: "value_error.email"})
		}
		if req.Password == nil {
			errs = append(errs, missingField("password"))
		}
		if len(errs) > 0 {
			writeValidation(w, errs)
			return
		}

		profile, err := s.users.create(*req.Email, *req.Password, users.RoleViewer, s.nowTime())
		if errors.Is(err, errUserExists) {
			writeDetail(w, http.StatusBadRequest, "User already registered")
			return
		}
		if err != nil {
			s.logger.Err(err).Msg("creating user")
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		s.issueTokens(w, http.StatusCreated, profile)
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, currentUser(r))
	}
}

func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.users.list())
	}
}

func (s *Server) ListProjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.listProjects())
	}
}

func (s *Server) GetProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := s.findProject(r.PathValue("projectId"))
		if !ok {
			writeDetail(w, http.StatusNotFound, "Project not found")
			return
		}
		writeJSON(w, http.StatusOK, project)
	}
}

func (s *Server) CreateProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req projectCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeValidation(w, []fieldError{{Loc: []any{"body", 0}, Msg: "Expecting value", Type: "value_error.jsondecode"}})
			return
		}
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			writeValidation(w, []fieldError{missingField("name")})
			return
		}

		user := currentUser(r)
		project := s.addProject(user.ID, strings.TrimSpace(*req.Name))
		s.recordAudit(user.ID, &project.ID, "create", "project", project.ID.String())
		writeJSON(w, http.StatusCreated, project)
	}
}

func (s *Server) AuditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.listAudit())
	}
}
