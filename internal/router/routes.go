// Package router holds the route table and runs pre-navigation hooks such
// as the authentication guard.
package router

import "strings"

// Route names.
const (
	Home                  = "Home"
	Login                 = "Login"
	Register              = "Register"
	VerifyEmail           = "VerifyEmail"
	BeginResetPassword    = "BeginResetPassword"
	ResetPassword         = "ResetPassword"
	Settings              = "Settings"
	SecuritySettings      = "SecuritySettings"
	DeleteAccountSettings = "DeleteAccountSettings"
	Error404              = "Error404"
)

// Meta carries per-route access policy. Nil fields default to true.
type Meta struct {
	RequiresAuth       *bool
	RedirectIfLoggedIn *bool
}

// NeedsAuth reports whether the route is only for logged-in users.
func (m Meta) NeedsAuth() bool {
	return m.RequiresAuth == nil || *m.RequiresAuth
}

// RedirectsLoggedIn reports whether logged-in users are sent away from the route.
func (m Meta) RedirectsLoggedIn() bool {
	return m.RedirectIfLoggedIn == nil || *m.RedirectIfLoggedIn
}

// Route is one navigable screen.
type Route struct {
	Name string
	Path string
	Meta Meta
}

func flag(b bool) *bool { return &b }

// DefaultRoutes is the application's route table. Error404 must stay last:
// it matches every path.
var DefaultRoutes = []Route{
	{Name: Home, Path: "/"},
	{Name: Login, Path: "/login", Meta: Meta{RequiresAuth: flag(false)}},
	{Name: Register, Path: "/register", Meta: Meta{RequiresAuth: flag(false)}},
	{Name: VerifyEmail, Path: "/verify-email", Meta: Meta{RequiresAuth: flag(false)}},
	{Name: BeginResetPassword, Path: "/begin-reset-password", Meta: Meta{RequiresAuth: flag(false), RedirectIfLoggedIn: flag(false)}},
	{Name: ResetPassword, Path: "/reset-password", Meta: Meta{RequiresAuth: flag(false), RedirectIfLoggedIn: flag(false)}},
	{Name: Settings, Path: "/settings"},
	{Name: SecuritySettings, Path: "/settings/security"},
	{Name: DeleteAccountSettings, Path: "/settings/delete-account"},
	{Name: Error404, Path: "/*"},
}

func (r Route) matches(path string) bool {
	if strings.HasSuffix(r.Path, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(r.Path, "*"))
	}
	return strings.TrimSuffix(path, "/") == strings.TrimSuffix(r.Path, "/")
}
