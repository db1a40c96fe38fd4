package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aitteam/whm/internal/backend"
)

// Response bodies of the proxy API.
const (
	msgAuthenticate = "Authenticate error"
	msgSystem       = "System error"
	msgBadLogin     = "Invalid email or password"
)

// The hosted backend's getList defaults.
const (
	defaultPage    = 1
	defaultPerPage = 30
)

const projectsCollection = "ait_whm_projects"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
}

func (s *Server) failed(r *http.Request, op string, err error) {
	status := backend.StatusOf(err)
	s.metrics.backendError(status)
	s.logger.Warn("backend call failed", "op", op, "path", r.URL.Path, "status", status, "error", err)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusInternalServerError, msgSystem)
		return
	}
	res, err := s.factory().AuthWithPassword(r.Context(), backend.UsersCollection, in.Email, in.Password)
	if err != nil {
		s.failed(r, "login", err)
		if backend.StatusOf(err) == http.StatusBadRequest {
			writeError(w, http.StatusUnauthorized, msgAuthenticate)
			return
		}
		writeError(w, http.StatusInternalServerError, msgSystem)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleProjectsLogin is the legacy login on the projects route. Every
// failure is reported as bad credentials.
func (s *Server) handleProjectsLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnauthorized, msgBadLogin)
		return
	}
	res, err := s.factory().AuthWithPassword(r.Context(), backend.UsersCollection, in.Email, in.Password)
	if err != nil {
		s.failed(r, "projects_login", err)
		writeError(w, http.StatusUnauthorized, msgBadLogin)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "user": res.Record})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registration
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusInternalServerError, msgSystem)
		return
	}
	rec, err := s.factory().Collection(backend.UsersCollection).Create(r.Context(), backend.Record{
		"username":        in.Username,
		"email":           in.Email,
		"emailVisibility": true,
		"password":        in.Password,
		"passwordConfirm": in.PasswordConfirm,
		"name":            in.Name,
	})
	if err != nil {
		s.failed(r, "register", err)
		var be *backend.Error
		if errors.As(err, &be) && be.Status == http.StatusBadRequest {
			writeError(w, http.StatusInternalServerError, be)
			return
		}
		writeError(w, http.StatusInternalServerError, msgSystem)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	page, perPage := queryInt(r, "page", defaultPage), queryInt(r, "perPage", defaultPerPage)
	list, err := s.clientFor(r).Collection(projectsCollection).GetList(r.Context(), page, perPage, backend.ListOptions{})
	if err != nil {
		s.failed(r, "projects", err)
		writeError(w, http.StatusInternalServerError, msgSystem)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": list})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("User ID is %s", r.PathValue("id")),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
