package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"

	"github.com/naveenspark/gatehouse/pkg/domain"
)

// DefaultTimeout bounds every API call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client is the account API client.
//
// Calls are made in one of three modes: unauthenticated, authenticated with
// the access token drawn from the TokenSource, or authenticated with an
// explicit refresh token.
type Client struct {
	baseURL  string
	plain    *http.Client
	authed   *http.Client
	validate *Validator
}

// New creates a new API client. tokens supplies the access token for
// authenticated calls and may be nil for a client that never makes them.
func New(baseURL string, tokens oauth2.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:  baseURL,
		plain:    &http.Client{Timeout: timeout},
		validate: NewValidator(),
	}
	if tokens != nil {
		c.authed = &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: tokens,
				Base:   http.DefaultTransport,
			},
		}
	}
	return c
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	req := domain.LoginRequest{Email: email, Password: password}
	if err := c.validate.Problem(req); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	var res domain.LoginResponse
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/login", "", req, &res); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &res, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.Register: %w", err)
	}
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/register", "", req, nil); err != nil {
		return fmt.Errorf("client.Register: %w", err)
	}
	return nil
}

// Refresh trades a refresh token for a new session. The request carries no body.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error) {
	var res domain.LoginResponse
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/refresh", refreshToken, nil, &res); err != nil {
		return nil, fmt.Errorf("client.Refresh: %w", err)
	}
	return &res, nil
}

// Logout revokes the current access token server-side.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doAuthed(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// --- Account methods ---

// VerifyEmail confirms an email address with the token from the verification mail.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	req := domain.TokenRequest{Token: token}
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.VerifyEmail: %w", err)
	}
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/verify-email", "", req, nil); err != nil {
		return fmt.Errorf("client.VerifyEmail: %w", err)
	}
	return nil
}

// ResendVerificationEmail asks for a new verification mail using an expired token.
func (c *Client) ResendVerificationEmail(ctx context.Context, token string) error {
	req := domain.TokenRequest{Token: token}
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.ResendVerificationEmail: %w", err)
	}
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/resend-verification-email", "", req, nil); err != nil {
		return fmt.Errorf("client.ResendVerificationEmail: %w", err)
	}
	return nil
}

// BeginResetPassword sends a password reset link to email.
func (c *Client) BeginResetPassword(ctx context.Context, email string) error {
	req := domain.BeginResetPasswordRequest{Email: email}
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.BeginResetPassword: %w", err)
	}
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/begin-reset-password", "", req, nil); err != nil {
		return fmt.Errorf("client.BeginResetPassword: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using the token from the reset link.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := domain.ResetPasswordRequest{Token: token, NewPassword: newPassword}
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.ResetPassword: %w", err)
	}
	if err := c.doRequest(ctx, c.plain, http.MethodPost, "/auth/reset-password", "", req, nil); err != nil {
		return fmt.Errorf("client.ResetPassword: %w", err)
	}
	return nil
}

// ChangePassword changes the logged-in user's password.
func (c *Client) ChangePassword(ctx context.Context, newPassword string) error {
	req := domain.ChangePasswordRequest{NewPassword: newPassword}
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.ChangePassword: %w", err)
	}
	if err := c.doAuthed(ctx, http.MethodPost, "/auth/password", req, nil); err != nil {
		return fmt.Errorf("client.ChangePassword: %w", err)
	}
	return nil
}

// ChangeName updates the logged-in user's first and last name.
func (c *Client) ChangeName(ctx context.Context, firstName, lastName string) error {
	req := domain.ChangeNameRequest{FirstName: firstName, LastName: lastName}
	if err := c.validate.Problem(req); err != nil {
		return fmt.Errorf("client.ChangeName: %w", err)
	}
	if err := c.doAuthed(ctx, http.MethodPost, "/user/profile/name", req, nil); err != nil {
		return fmt.Errorf("client.ChangeName: %w", err)
	}
	return nil
}

// DeleteUser deletes the logged-in user's account.
func (c *Client) DeleteUser(ctx context.Context) error {
	if err := c.doAuthed(ctx, http.MethodDelete, "/user", nil, nil); err != nil {
		return fmt.Errorf("client.DeleteUser: %w", err)
	}
	return nil
}

func (c *Client) doAuthed(ctx context.Context, method, path string, body any, out any) error {
	if c.authed == nil {
		return Translate(ErrNoTokenSource)
	}
	return c.doRequest(ctx, c.authed, method, path, "", body, out)
}

// doRequest performs one JSON round trip. bearer, when set, is sent as the
// Authorization header. Every failure is returned as a *domain.Problem.
func (c *Client) doRequest(ctx context.Context, hc *http.Client, method, path, bearer string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Translate(fmt.Errorf("marshal body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return Translate(fmt.Errorf("create request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/problem+json")
	req.Header.Set("X-Request-Id", ulid.Make().String())
	if bearer != "" {
		(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return Translate(fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return Translate(&HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)})
		}
		return Translate(&HTTPError{StatusCode: resp.StatusCode, Message: string(respBody), Body: respBody})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Translate(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}
