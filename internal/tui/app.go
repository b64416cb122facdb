// Package tui is the interactive terminal client. Screens follow the
// router: every navigation passes the authentication guard, and session
// changes raised in the background (silent refresh, expiry) re-run it.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/gatehouse/internal/browser"
	"github.com/naveenspark/gatehouse/internal/notify"
	"github.com/naveenspark/gatehouse/internal/router"
	"github.com/naveenspark/gatehouse/internal/session"
)

// toastExpiredMsg hides the toast with the given sequence number.
type toastExpiredMsg struct {
	seq int
}

// Options configures an App.
type Options struct {
	DocsURL string
	Version string
	// Notifier receives outcomes of screen actions. Normally the Bridge.
	Notifier notify.Notifier
	// Now is the clock for countdowns; defaults to time.Now.
	Now func() time.Time
}

// App is the root Bubbletea model.
type App struct {
	mgr    *session.Manager
	router *router.Router
	note   notify.Notifier
	opts   Options

	route    router.Route
	form     form
	hasForm  bool
	confirm  bool // delete account confirmation armed
	busy     bool
	toast    *notify.Notification
	toastSeq int
	helpOpen bool

	width  int
	height int
	frame  int
}

// NewApp creates the TUI for mgr. The router must already carry the
// authentication guard.
func NewApp(mgr *session.Manager, rt *router.Router, opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	note := opts.Notifier
	if note == nil {
		note = notify.Func(func(notify.Notification) {})
	}
	return App{mgr: mgr, router: rt, note: note, opts: opts}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), func() tea.Msg {
		rt, err := a.router.Push(router.Home)
		if err != nil {
			return nil
		}
		return routeMsg{route: rt}
	})
}

// navigate pushes name through the router and shows whatever it lands on.
func (a App) navigate(name string) App {
	rt, err := a.router.Push(name)
	if err != nil {
		notify.DisplayError(a.note, err)
		return a
	}
	return a.show(rt)
}

// show switches the screen to rt, resetting its state.
func (a App) show(rt router.Route) App {
	if rt.Name == a.route.Name && a.route.Name != "" {
		return a
	}
	a.route = rt
	a.confirm = false
	a.busy = false
	a.form, a.hasForm = formFor(rt.Name, a.mgr.State().Current())
	return a
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case routeMsg:
		return a.show(msg.route), nil

	case sessionChangedMsg:
		rt, err := a.router.Revalidate()
		if err != nil {
			return a, nil
		}
		a = a.show(rt)
		if msg.session != nil && a.route.Name == router.Settings && !a.form.busy {
			// Keep the profile form in step with a changed name.
			a.form = a.form.with(lblFirstName, msg.session.FirstName).with(lblLastName, msg.session.LastName)
		}
		return a, nil

	case toastMsg:
		n := notify.Notification(msg)
		if n.Duration <= 0 {
			n.Duration = notify.DefaultDuration
		}
		a.toast = &n
		a.toastSeq++
		seq := a.toastSeq
		return a, tea.Tick(n.Duration, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })

	case toastExpiredMsg:
		if msg.seq == a.toastSeq {
			a.toast = nil
		}
		return a, nil

	case actionDoneMsg:
		return a.done(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "ctrl+o":
		if a.opts.DocsURL != "" {
			browser.Open(a.opts.DocsURL) //nolint:errcheck // best-effort browser open
		}
		return a, nil
	case "f1":
		a.helpOpen = !a.helpOpen
		return a, nil
	}

	if a.helpOpen {
		switch msg.String() {
		case "esc", "q", "?":
			a.helpOpen = false
		}
		return a, nil
	}

	if a.hasForm {
		return a.handleFormKey(msg)
	}

	switch a.route.Name {
	case router.Home:
		return a.handleHomeKey(msg)
	case router.DeleteAccountSettings:
		return a.handleDeleteKey(msg)
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "?":
		a.helpOpen = true
	case "esc", "enter":
		return a.navigate(router.Home), nil
	}
	return a, nil
}

func (a App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	loggedIn := a.mgr.State().LoggedIn()
	switch msg.String() {
	case "esc":
		if a.form.busy {
			return a, nil
		}
		if loggedIn {
			return a.navigate(router.Home), nil
		}
		if a.route.Name != router.Login {
			return a.navigate(router.Login), nil
		}
		return a, nil
	case "ctrl+r":
		if !loggedIn {
			return a.navigate(router.Register), nil
		}
	case "ctrl+f":
		if a.route.Name == router.Login {
			return a.navigate(router.BeginResetPassword), nil
		}
	case "ctrl+e":
		if a.route.Name == router.Login {
			return a.navigate(router.VerifyEmail), nil
		}
	case "ctrl+t":
		if a.route.Name == router.BeginResetPassword {
			return a.navigate(router.ResetPassword), nil
		}
	case "ctrl+s":
		if a.route.Name == router.VerifyEmail && !a.form.busy {
			tok := a.form.value(lblToken)
			if tok == "" {
				a.form = a.form.fail("token is required")
				return a, nil
			}
			a.form.busy = true
			return a, run(actResendVerification, func(ctx context.Context) error { return a.mgr.ResendVerificationEmail(ctx, tok) })
		}
	case "ctrl+y":
		if a.route.Name == router.Settings {
			if tok, ok := a.mgr.State().AccessToken(); ok {
				return a, copyCmd("access token", tok)
			}
		}
	case "ctrl+u":
		if a.route.Name == router.Settings {
			if info := a.mgr.State().UserInfo(); info != nil {
				return a, copyCmd("user id", info.UserID)
			}
		}
	}

	var submit bool
	a.form, submit = a.form.update(msg)
	if !submit {
		return a, nil
	}
	var cmd tea.Cmd
	a.form, cmd = submitForm(a.mgr, a.route.Name, a.form)
	return a, cmd
}

func (a App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.busy {
		if msg.String() == "q" {
			return a, tea.Quit
		}
		return a, nil
	}
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "?":
		a.helpOpen = true
	case "s":
		return a.navigate(router.Settings), nil
	case "p":
		return a.navigate(router.SecuritySettings), nil
	case "d":
		return a.navigate(router.DeleteAccountSettings), nil
	case "r":
		a.busy = true
		return a, run(actRefresh, a.mgr.Refresh)
	case "l":
		a.busy = true
		return a, run(actLogout, a.mgr.Logout)
	case "c":
		if tok, ok := a.mgr.State().AccessToken(); ok {
			return a, copyCmd("access token", tok)
		}
	}
	return a, nil
}

func (a App) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.busy {
		return a, nil
	}
	switch msg.String() {
	case "esc", "n":
		a.confirm = false
		return a.navigate(router.Home), nil
	case "y":
		if !a.confirm {
			a.confirm = true
			return a, nil
		}
		a.busy = true
		return a, run(actDeleteAccount, a.mgr.DeleteAccount)
	}
	return a, nil
}

// done reacts to a finished action.
func (a App) done(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	if msg.err != nil {
		if a.hasForm {
			a.form = a.form.fail(problemText(msg.err))
		}
		notify.DisplayError(a.note, msg.err)
		return a, nil
	}

	switch msg.action {
	case actLogin:
		return a.navigate(router.Home), nil
	case actRegister:
		notify.Send(a.note, notify.Success, "Account created", "Check your inbox to verify your email address")
		return a.navigate(router.VerifyEmail), nil
	case actVerifyEmail:
		notify.Send(a.note, notify.Success, "Email verified", "You can now sign in")
		return a.navigate(router.Login), nil
	case actResendVerification:
		a.form = a.form.ok("verification email sent")
	case actBeginReset:
		notify.Send(a.note, notify.Success, "Check your inbox", "A password reset token is on its way")
		return a.navigate(router.ResetPassword), nil
	case actResetPassword:
		notify.Send(a.note, notify.Success, "Password changed", "Sign in with your new password")
		return a.navigate(router.Login), nil
	case actChangeName:
		a.form = a.form.ok("name updated")
		notify.Send(a.note, notify.Success, "Profile updated", "Your name has been changed")
	case actChangePassword:
		notify.Send(a.note, notify.Success, "Password changed", "Your password has been updated")
		return a.navigate(router.Home), nil
	case actRefresh:
		notify.Send(a.note, notify.Success, "Session refreshed", "A new access token was issued")
	case actCopy:
		notify.Send(a.note, notify.Success, "Copied", "The "+msg.what+" is on your clipboard")
	}
	// Logout and account deletion navigate on their own.
	return a, nil
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	header := center(logo, a.width) + "\n" + center(a.identityLine(), a.width)

	crumb := " " + metaStyle.Render(a.route.Path)
	if a.route.Path == "" {
		crumb = " " + metaStyle.Render("loading")
	}

	var body, help string
	switch {
	case a.helpOpen:
		body = helpView(a.opts.DocsURL)
		help = helpBar(helpEntry("esc", "close"), helpEntry("ctrl+o", "docs"))
	case a.hasForm:
		body = a.form.view()
		help = a.formHelp()
	case a.route.Name == router.Home:
		body = a.homeView()
		help = helpBar(helpEntry("s", "profile"), helpEntry("p", "password"), helpEntry("r", "refresh"),
			helpEntry("c", "copy token"), helpEntry("l", "logout"), helpEntry("d", "delete account"),
			helpEntry("?", "help"), helpEntry("q", "quit"))
	case a.route.Name == router.DeleteAccountSettings:
		body = a.deleteView()
		help = helpBar(helpEntry("y", "confirm"), helpEntry("esc", "cancel"))
	default:
		body = fmt.Sprintf("\n  %s\n  %s\n", titleStyle.Render("Not found"), dimStyle.Render("There is nothing at "+a.route.Path+"."))
		help = helpBar(helpEntry("enter", "home"), helpEntry("q", "quit"))
	}

	toast := ""
	if a.toast != nil {
		toast = renderToast(*a.toast, a.width)
	}

	// Chrome: header(2) + crumb(1) + toast(3) + help(1)
	chrome := 7
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, crumb, body, toast, help)
}

func (a App) formHelp() string {
	entries := []string{helpEntry("tab", "next"), helpEntry("enter", "submit")}
	switch a.route.Name {
	case router.Login:
		entries = append(entries, helpEntry("ctrl+r", "register"), helpEntry("ctrl+f", "forgot"), helpEntry("ctrl+e", "verify"))
	case router.VerifyEmail:
		entries = append(entries, helpEntry("ctrl+s", "resend"))
	case router.BeginResetPassword:
		entries = append(entries, helpEntry("ctrl+t", "have a token"))
	case router.Settings:
		entries = append(entries, helpEntry("ctrl+y", "copy token"), helpEntry("ctrl+u", "copy id"))
	}
	entries = append(entries, helpEntry("esc", "back"), helpEntry("f1", "help"))
	return helpBar(entries...)
}

func (a App) identityLine() string {
	info := a.mgr.State().UserInfo()
	if info == nil {
		return metaStyle.Render("not signed in")
	}
	return selectedStyle.Render(info.Name) + metaStyle.Render(" · "+info.Email)
}

func (a App) homeView() string {
	sess := a.mgr.State().Current()
	if sess == nil {
		return ""
	}
	now := a.opts.Now()
	row := func(label, value string) string {
		return fmt.Sprintf("    %s  %s\n", metaStyle.Render(fmt.Sprintf("%-16s", label)), value)
	}
	countdown := func(t time.Time) string {
		left := t.Sub(now)
		return expiryStyle(left).Render(formatCountdown(left)) + metaStyle.Render("  "+t.Local().Format("15:04:05"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n\n", titleStyle.Render("Welcome back, "+sess.FirstName))
	fmt.Fprintf(&b, "  %s\n", sectionHeaderStyle.Render("Account"))
	b.WriteString(row("name", normalStyle.Render(sess.FirstName+" "+sess.LastName)))
	b.WriteString(row("email", normalStyle.Render(sess.Email)))
	b.WriteString(row("user id", dimStyle.Render(sess.UserID)))

	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("Session"))
	b.WriteString(row("access token", dimStyle.Render(maskToken(sess.AccessToken))))
	b.WriteString(row("access expires", countdown(sess.AccessTokenExpiration)))
	b.WriteString(row("refresh expires", countdown(sess.RefreshTokenExpiration)))
	if due, ok := a.mgr.Scheduler().Due(); ok {
		b.WriteString(row("next refresh", countdown(due)))
	} else {
		b.WriteString(row("next refresh", metaStyle.Render("not scheduled")))
	}
	if a.busy {
		fmt.Fprintf(&b, "\n  %s\n", dimStyle.Render("working..."))
	}
	return b.String()
}

func (a App) deleteView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n\n", titleStyle.Render("Delete account"))
	b.WriteString("  " + normalStyle.Render("This permanently deletes your account and signs you out.") + "\n\n")
	switch {
	case a.busy:
		b.WriteString("  " + dimStyle.Render("deleting...") + "\n")
	case a.confirm:
		b.WriteString("  " + errorTextStyle.Render("Press y again to delete your account for good.") + "\n")
	default:
		b.WriteString("  " + dimStyle.Render("Press y to continue, esc to keep your account.") + "\n")
	}
	return b.String()
}

// center pads s so it sits in the middle of width columns.
func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
