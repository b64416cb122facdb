package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatehouse/internal/router"
	"github.com/naveenspark/gatehouse/internal/session"
	"github.com/naveenspark/gatehouse/pkg/client"
	"github.com/naveenspark/gatehouse/pkg/domain"
)

// Field labels.
const (
	lblEmail       = "email"
	lblPassword    = "password"
	lblConfirm     = "confirm password"
	lblFirstName   = "first name"
	lblLastName    = "last name"
	lblToken       = "token"
	lblNewPassword = "new password"
)

// actionTimeout bounds a single user-triggered operation.
const actionTimeout = 30 * time.Second

type action int

const (
	actLogin action = iota
	actRegister
	actVerifyEmail
	actResendVerification
	actBeginReset
	actResetPassword
	actChangeName
	actChangePassword
	actDeleteAccount
	actRefresh
	actLogout
	actCopy
)

// actionDoneMsg reports the outcome of an action started from a screen.
type actionDoneMsg struct {
	action action
	what   string
	err    error
}

// formFor builds the form shown on a route. Screens without input get ok=false.
func formFor(name string, sess *domain.Session) (form, bool) {
	switch name {
	case router.Login:
		f := newForm("Sign in", lblEmail, lblPassword).secret(lblPassword)
		f.intro = "ctrl+r create an account · ctrl+f forgot password · ctrl+e verify email"
		return f, true
	case router.Register:
		f := newForm("Create an account", lblFirstName, lblLastName, lblEmail, lblPassword, lblConfirm).
			secret(lblPassword, lblConfirm)
		f.intro = "Passwords need at least 10 characters."
		return f, true
	case router.VerifyEmail:
		f := newForm("Verify your email", lblToken)
		f.intro = "Paste the token from the verification email. ctrl+s sends a new one."
		return f, true
	case router.BeginResetPassword:
		f := newForm("Reset your password", lblEmail)
		f.intro = "We will email you a reset token."
		return f, true
	case router.ResetPassword:
		f := newForm("Choose a new password", lblToken, lblNewPassword, lblConfirm).
			secret(lblNewPassword, lblConfirm)
		return f, true
	case router.Settings:
		f := newForm("Profile", lblFirstName, lblLastName)
		f.intro = "ctrl+y copy access token · ctrl+u copy user id"
		if sess != nil {
			f = f.with(lblFirstName, sess.FirstName).with(lblLastName, sess.LastName)
		}
		return f, true
	case router.SecuritySettings:
		f := newForm("Security", lblNewPassword, lblConfirm).secret(lblNewPassword, lblConfirm)
		f.intro = "Change the password used to sign in."
		return f, true
	}
	return form{}, false
}

// submitForm validates the active form locally and starts the matching
// action.
func submitForm(mgr *session.Manager, route string, f form) (form, tea.Cmd) {
	if label, ok := f.missing(); ok {
		return f.fail(label + " is required"), nil
	}
	switch route {
	case router.Register, router.ResetPassword, router.SecuritySettings:
		pw := f.value(lblPassword)
		if route != router.Register {
			pw = f.value(lblNewPassword)
		}
		if pw != f.value(lblConfirm) {
			return f.fail("passwords do not match"), nil
		}
	}

	f.busy = true
	switch route {
	case router.Login:
		email, pw := f.value(lblEmail), f.value(lblPassword)
		return f, run(actLogin, func(ctx context.Context) error { return mgr.Login(ctx, email, pw) })
	case router.Register:
		req := domain.RegisterRequest{
			Email:     f.value(lblEmail),
			Password:  f.value(lblPassword),
			FirstName: f.value(lblFirstName),
			LastName:  f.value(lblLastName),
		}
		return f, run(actRegister, func(ctx context.Context) error { return mgr.Register(ctx, req) })
	case router.VerifyEmail:
		tok := f.value(lblToken)
		return f, run(actVerifyEmail, func(ctx context.Context) error { return mgr.VerifyEmail(ctx, tok) })
	case router.BeginResetPassword:
		email := f.value(lblEmail)
		return f, run(actBeginReset, func(ctx context.Context) error { return mgr.BeginResetPassword(ctx, email) })
	case router.ResetPassword:
		tok, pw := f.value(lblToken), f.value(lblNewPassword)
		return f, run(actResetPassword, func(ctx context.Context) error { return mgr.ResetPassword(ctx, tok, pw) })
	case router.Settings:
		first, last := f.value(lblFirstName), f.value(lblLastName)
		return f, run(actChangeName, func(ctx context.Context) error { return mgr.ChangeName(ctx, first, last) })
	case router.SecuritySettings:
		pw := f.value(lblNewPassword)
		return f, run(actChangePassword, func(ctx context.Context) error { return mgr.ChangePassword(ctx, pw) })
	}
	f.busy = false
	return f, nil
}

// run executes op off the event loop.
func run(act action, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{action: act, err: op(ctx)}
	}
}

// copyCmd puts text on the system clipboard.
func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: actCopy, what: what, err: clipboard.WriteAll(text)}
	}
}

// problemText is the line shown under a form when its action failed.
func problemText(err error) string {
	if errors.Is(err, session.ErrNotLoggedIn) {
		return "you are not signed in"
	}
	var p *domain.Problem
	if !errors.As(err, &p) {
		p = client.Translate(err)
	}
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}
