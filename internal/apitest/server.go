// Package apitest runs an in-process fake of the account API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"github.com/naveenspark/gatehouse/pkg/domain"
)

// Default token lifetimes, matching the production API.
const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 30 * time.Minute
)

type user struct {
	id        string
	email     string
	password  string
	firstName string
	lastName  string
	verified  bool
}

type failure struct {
	status  int
	problem *domain.Problem
	raw     string
}

// Server is a fake account API backed by an httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
	delay      time.Duration
	users      map[string]*user
	access     map[string]string // access token -> email
	refresh    map[string]string // refresh token -> email
	calls      map[string]int
	headers    map[string]http.Header
	failures   map[string]failure
}

// New starts a fake API server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		now:        time.Now,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		users:      make(map[string]*user),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		calls:      make(map[string]int),
		headers:    make(map[string]http.Header),
		failures:   make(map[string]failure),
	}

	r := mux.NewRouter()
	r.Use(s.record)
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.requireAccess(s.handleLogout)).Methods(http.MethodPost)
	auth.HandleFunc("/verify-email", s.handleToken).Methods(http.MethodPost)
	auth.HandleFunc("/resend-verification-email", s.handleToken).Methods(http.MethodPost)
	auth.HandleFunc("/begin-reset-password", s.handleNoContent).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", s.handleToken).Methods(http.MethodPost)
	auth.HandleFunc("/password", s.requireAccess(s.handleChangePassword)).Methods(http.MethodPost)
	r.HandleFunc("/user/profile/name", s.requireAccess(s.handleChangeName)).Methods(http.MethodPost)
	r.HandleFunc("/user", s.requireAccess(s.handleDeleteUser)).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetClock overrides the server's notion of now for token expirations.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetTTL overrides the lifetimes of issued tokens.
func (s *Server) SetTTL(access, refresh time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = access
	s.refreshTTL = refresh
}

// SetDelay makes every handler sleep for d before answering.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// AddUser registers a verified user and returns its ID.
func (s *Server) AddUser(email, password, firstName, lastName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{id: uuid.NewString(), email: email, password: password, firstName: firstName, lastName: lastName, verified: true}
	s.users[email] = u
	return u.id
}

// FailNext makes the next call to path answer with status and problem.
// A nil problem sends a plain-text body instead.
func (s *Server) FailNext(path string, status int, problem *domain.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, problem: problem, raw: http.StatusText(status)}
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastHeader returns header key of the most recent request to path.
func (s *Server) LastHeader(path, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.headers[path]; ok {
		return h.Get(key)
	}
	return ""
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.headers[r.URL.Path] = r.Header.Clone()
		delay := s.delay
		f, failing := s.failures[r.URL.Path]
		if failing {
			delete(s.failures, r.URL.Path)
		}
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if f.problem != nil {
				writeProblem(w, f.status, f.problem)
			} else {
				http.Error(w, f.raw, f.status)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAccess(next func(http.ResponseWriter, *http.Request, *user)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := bearer(r)
		if tok == "" {
			writeProblem(w, http.StatusUnauthorized, &domain.Problem{
				ID:     "AuthNoAuthorizationHeader",
				Title:  "No `Authorization` header was found in the HTTP request",
				Status: http.StatusUnauthorized,
				Detail: "`Authorization` header must be provided and must contain a bearer token.",
			})
			return
		}
		s.mu.Lock()
		email, ok := s.access[tok]
		u := s.users[email]
		s.mu.Unlock()
		if !ok || u == nil {
			writeProblem(w, http.StatusForbidden, &domain.Problem{
				ID:     "AuthInvalidBiscuit",
				Title:  "Invalid biscuit",
				Status: http.StatusForbidden,
				Detail: "The provided authentication token (Biscuit) is not valid, was not created using the current private key or is expired.",
			})
			return
		}
		next(w, r, u)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, &domain.Problem{ID: "Validation", Title: "Provided input is malformed", Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}
	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeProblem(w, http.StatusForbidden, &domain.Problem{
			ID:     "AuthFailedLogin",
			Title:  "Authentication failed",
			Status: http.StatusForbidden,
			Detail: "The provided credentials are invalid.",
		})
		return
	}
	if !u.verified {
		writeProblem(w, http.StatusForbidden, &domain.Problem{
			ID:     "EmailNotVerified",
			Title:  "Email not verified",
			Status: http.StatusForbidden,
			Detail: "You must verify your email address before you can log in.",
		})
		return
	}
	writeJSON(w, http.StatusCreated, s.issue(u))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, &domain.Problem{ID: "Validation", Title: "Provided input is malformed", Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}
	s.mu.Lock()
	s.users[req.Email] = &user{id: uuid.NewString(), email: req.Email, password: req.Password, firstName: req.FirstName, lastName: req.LastName}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": "created"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tok := bearer(r)
	s.mu.Lock()
	email, ok := s.refresh[tok]
	if ok {
		delete(s.refresh, tok)
	}
	u := s.users[email]
	s.mu.Unlock()
	if !ok || u == nil {
		writeProblem(w, http.StatusUnauthorized, &domain.Problem{
			ID:     "AuthFailedRefresh",
			Title:  "Refreshing access token failed",
			Status: http.StatusUnauthorized,
			Detail: "The provided refresh token is probably invalid or expired.",
		})
		return
	}
	writeJSON(w, http.StatusCreated, s.issue(u))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	delete(s.access, bearer(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req["token"] == "" {
		writeProblem(w, http.StatusUnauthorized, &domain.Problem{
			ID:     "AuthEmailExpired",
			Title:  "Could not verify your link",
			Status: http.StatusUnauthorized,
			Detail: "The link you clicked might be expired. Please retry the whole process or contact support.",
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNoContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, u *user) {
	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, &domain.Problem{ID: "Validation", Title: "Provided input is malformed", Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}
	s.mu.Lock()
	u.password = req.NewPassword
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangeName(w http.ResponseWriter, r *http.Request, u *user) {
	var req domain.ChangeNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, &domain.Problem{ID: "Validation", Title: "Provided input is malformed", Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}
	s.mu.Lock()
	u.firstName, u.lastName = req.FirstName, req.LastName
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	delete(s.users, u.email)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issue(u *user) domain.LoginResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	res := domain.LoginResponse{
		AccessToken:            "at_" + ulid.Make().String(),
		AccessTokenExpiration:  now.Add(s.accessTTL).UTC(),
		RefreshToken:           "rt_" + ulid.Make().String(),
		RefreshTokenExpiration: now.Add(s.refreshTTL).UTC(),
		UserID:                 u.id,
		Email:                  u.email,
		FirstName:              u.firstName,
		LastName:               u.lastName,
	}
	s.access[res.AccessToken] = u.email
	s.refresh[res.RefreshToken] = u.email
	return res
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeProblem(w http.ResponseWriter, status int, p *domain.Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(p) //nolint:errcheck
}
