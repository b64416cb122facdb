package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/naveenspark/gatehouse/internal/apitest"
	"github.com/naveenspark/gatehouse/pkg/domain"
)

func TestLogin(t *testing.T) {
	api := apitest.New(t)
	id := api.AddUser("a@x.com", "correct-horse", "Ada", "Byron")

	c := New(api.URL, nil, time.Second)
	res, err := c.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if res.UserID != id {
		t.Errorf("UserID = %v, want %v", res.UserID, id)
	}
	if res.FirstName != "Ada" || res.LastName != "Byron" {
		t.Errorf("name = %q %q, want Ada Byron", res.FirstName, res.LastName)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Error("expected both tokens to be set")
	}
	if !res.RefreshTokenExpiration.After(res.AccessTokenExpiration) {
		t.Errorf("refresh expiration %v should be after access expiration %v", res.RefreshTokenExpiration, res.AccessTokenExpiration)
	}
	if got := api.LastHeader("/auth/login", "X-Request-Id"); got == "" {
		t.Error("expected X-Request-Id header on request")
	}
	if got := api.LastHeader("/auth/login", "Authorization"); got != "" {
		t.Errorf("login must be unauthenticated, got Authorization %q", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("a@x.com", "correct-horse", "Ada", "Byron")

	c := New(api.URL, nil, time.Second)
	_, err := c.Login(context.Background(), "a@x.com", "wrong")
	if err == nil {
		t.Fatal("expected error for bad credentials")
	}
	var p *domain.Problem
	if !errors.As(err, &p) {
		t.Fatalf("error %v does not wrap a Problem", err)
	}
	if p.ID != "AuthFailedLogin" || p.Status != http.StatusForbidden {
		t.Errorf("problem = %+v, want AuthFailedLogin/403", p)
	}
	if !IsStatus(err, http.StatusForbidden) {
		t.Error("IsStatus(err, 403) = false, want true")
	}
}

func TestLogin_ValidationSkipsTransport(t *testing.T) {
	api := apitest.New(t)
	c := New(api.URL, nil, time.Second)

	_, err := c.Login(context.Background(), "", "")
	var p *domain.Problem
	if !errors.As(err, &p) {
		t.Fatalf("error %v does not wrap a Problem", err)
	}
	if p.ID != domain.ProblemValidation || p.Status != 422 {
		t.Errorf("problem = %+v, want Validation/422", p)
	}
	if !strings.Contains(p.Detail, "email is required") {
		t.Errorf("detail = %q, want it to name the email field", p.Detail)
	}
	if n := api.Calls("/auth/login"); n != 0 {
		t.Errorf("login calls = %d, want 0", n)
	}
}

func TestRegister(t *testing.T) {
	api := apitest.New(t)
	c := New(api.URL, nil, time.Second)

	err := c.Register(context.Background(), domain.RegisterRequest{
		Email: "new@x.com", FirstName: "New", LastName: "User", Password: "0123456789",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if n := api.Calls("/auth/register"); n != 1 {
		t.Errorf("register calls = %d, want 1", n)
	}
}

func TestRegister_PasswordTooShort(t *testing.T) {
	api := apitest.New(t)
	c := New(api.URL, nil, time.Second)

	err := c.Register(context.Background(), domain.RegisterRequest{
		Email: "new@x.com", FirstName: "New", LastName: "User", Password: "short",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := err.Error(); !strings.Contains(got, "password must be at least 10 characters") {
		t.Errorf("error = %q, want password length message", got)
	}
}

func TestRefresh_SendsRefreshTokenWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer RT" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body) //nolint:errcheck
		if len(body) != 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"AT2","access_token_expiration":"2030-01-01T00:00:00Z","refresh_token":"RT2","refresh_token_expiration":"2030-01-02T00:00:00Z","user_id":"6f1b7d8e-8c1a-4a7e-9a55-2b0a3a5c9d11","email":"a@x.com","first_name":"A","last_name":"B"}`) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, nil, time.Second)
	res, err := c.Refresh(context.Background(), "RT")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if res.AccessToken != "AT2" || res.RefreshToken != "RT2" {
		t.Errorf("tokens = %q/%q, want AT2/RT2", res.AccessToken, res.RefreshToken)
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !res.AccessTokenExpiration.Equal(want) {
		t.Errorf("AccessTokenExpiration = %v, want %v", res.AccessTokenExpiration, want)
	}
}

func TestLogout_UsesAccessToken(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("a@x.com", "correct-horse", "Ada", "Byron")

	anon := New(api.URL, nil, time.Second)
	res, err := anon.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	c := New(api.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: res.AccessToken}), time.Second)
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if got := api.LastHeader("/auth/logout", "Authorization"); got != "Bearer "+res.AccessToken {
		t.Errorf("Authorization = %q, want bearer access token", got)
	}
}

func TestAuthenticatedCallWithoutTokenSource(t *testing.T) {
	api := apitest.New(t)
	c := New(api.URL, nil, time.Second)

	err := c.DeleteUser(context.Background())
	if err == nil {
		t.Fatal("expected error without token source")
	}
	var p *domain.Problem
	if !errors.As(err, &p) || p.ID != domain.ProblemUnknown {
		t.Errorf("error = %v, want unknown problem", err)
	}
	if n := api.Calls("/user"); n != 0 {
		t.Errorf("delete calls = %d, want 0", n)
	}
}

func TestAccountOperations(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("a@x.com", "correct-horse", "Ada", "Byron")
	res, err := New(api.URL, nil, time.Second).Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	c := New(api.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: res.AccessToken}), time.Second)
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		call func() error
	}{
		{"verify email", "/auth/verify-email", func() error { return c.VerifyEmail(ctx, "tok") }},
		{"resend verification", "/auth/resend-verification-email", func() error { return c.ResendVerificationEmail(ctx, "tok") }},
		{"begin reset", "/auth/begin-reset-password", func() error { return c.BeginResetPassword(ctx, "a@x.com") }},
		{"reset", "/auth/reset-password", func() error { return c.ResetPassword(ctx, "tok", "a-new-password") }},
		{"change password", "/auth/password", func() error { return c.ChangePassword(ctx, "another-password") }},
		{"change name", "/user/profile/name", func() error { return c.ChangeName(ctx, "Augusta", "King") }},
		{"delete user", "/user", func() error { return c.DeleteUser(ctx) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("error: %v", err)
			}
			if n := api.Calls(tt.path); n != 1 {
				t.Errorf("calls to %s = %d, want 1", tt.path, n)
			}
		})
	}
}

func TestTimeoutBecomesProblem(t *testing.T) {
	api := apitest.New(t)
	api.SetDelay(500 * time.Millisecond)

	c := New(api.URL, nil, 50*time.Millisecond)
	_, err := c.Login(context.Background(), "a@x.com", "pw")
	var p *domain.Problem
	if !errors.As(err, &p) {
		t.Fatalf("error %v does not wrap a Problem", err)
	}
	if p.ID != domain.ProblemTimeout || p.Status != 0 {
		t.Errorf("problem = %+v, want TimeoutExceeded/0", p)
	}
}

func TestServerErrorWithoutProblemBody(t *testing.T) {
	api := apitest.New(t)
	api.FailNext("/auth/login", http.StatusBadGateway, nil)

	c := New(api.URL, nil, time.Second)
	_, err := c.Login(context.Background(), "a@x.com", "pw")
	var p *domain.Problem
	if !errors.As(err, &p) {
		t.Fatalf("error %v does not wrap a Problem", err)
	}
	if p.ID != domain.ProblemUnknown || p.Status != 500 || p.Title != "Unknown Error" {
		t.Errorf("problem = %+v, want unknown/500", p)
	}
	if !strings.HasPrefix(p.Detail, "An unknown error occurred: ") {
		t.Errorf("detail = %q", p.Detail)
	}
}

func TestDoRequest_CancelledContext(t *testing.T) {
	api := apitest.New(t)
	api.SetDelay(5 * time.Second)

	c := New(api.URL, nil, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Login(ctx, "a@x.com", "pw"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
