package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/naveenspark/gatehouse/internal/apitest"
	"github.com/naveenspark/gatehouse/internal/notify"
	"github.com/naveenspark/gatehouse/internal/router"
	"github.com/naveenspark/gatehouse/internal/session"
	"github.com/naveenspark/gatehouse/pkg/client"
)

type testEnv struct {
	api   *apitest.Server
	mgr   *session.Manager
	rt    *router.Router
	notes *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := apitest.New(t)
	api.AddUser("a@x.com", "correct-horse-battery", "Ada", "Byron")

	state := session.NewState()
	c := client.New(api.URL, state, 5*time.Second)
	store := session.NewStore(session.NewMemoryStorage())
	notes := &notify.Recorder{}
	rt := router.New(router.DefaultRoutes)
	rt.BeforeEach(router.Guard(state))
	mgr := session.NewManager(c, state, store, session.Options{
		Notifier:  notes,
		Navigator: rt,
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(mgr.Scheduler().Cancel)
	return &testEnv{api: api, mgr: mgr, rt: rt, notes: notes}
}

func (e *testEnv) app() App {
	a := NewApp(e.mgr, e.rt, Options{Notifier: e.notes, DocsURL: "https://example.com/docs"})
	a.width = 100
	a.height = 40
	return a.navigate(router.Home)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys to the app and runs the command produced by the last one.
func press(t *testing.T, a App, keys ...string) (App, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var m tea.Model
		m, cmd = a.Update(key(k))
		a = m.(App)
	}
	return a, cmd
}

func typeText(t *testing.T, a App, text string) App {
	t.Helper()
	for _, r := range text {
		a, _ = press(t, a, string(r))
	}
	return a
}

// finish runs cmd synchronously and feeds its message back.
func finish(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	m, _ := a.Update(cmd())
	return m.(App)
}

func login(t *testing.T, a App, email, password string) App {
	t.Helper()
	a = typeText(t, a, email)
	a, _ = press(t, a, "tab")
	a = typeText(t, a, password)
	a, cmd := press(t, a, "enter")
	return finish(t, a, cmd)
}

func TestAppStartsAtLoginWhenLoggedOut(t *testing.T) {
	a := newTestEnv(t).app()
	if a.route.Name != router.Login {
		t.Fatalf("route = %q, want %q", a.route.Name, router.Login)
	}
	if !a.hasForm {
		t.Fatal("expected the login form")
	}
	if !strings.Contains(a.View(), "Sign in") {
		t.Error("login screen should render its title")
	}
}

func TestAppLogin(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "correct-horse-battery")

	if a.route.Name != router.Home {
		t.Fatalf("route = %q, want %q", a.route.Name, router.Home)
	}
	if !env.mgr.State().LoggedIn() {
		t.Fatal("expected a session after login")
	}
	view := a.View()
	for _, want := range []string{"Welcome back, Ada", "a@x.com", "next refresh"} {
		if !strings.Contains(view, want) {
			t.Errorf("home view missing %q", want)
		}
	}
}

func TestAppLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "not-the-password")

	if a.route.Name != router.Login {
		t.Fatalf("route = %q, want %q", a.route.Name, router.Login)
	}
	if !a.form.failed || !strings.Contains(a.form.status, "credentials are invalid") {
		t.Errorf("form status = %q, want the problem detail", a.form.status)
	}
	n, ok := env.notes.Last()
	if !ok || n.Severity != notify.Warning {
		t.Errorf("expected a warning toast, got %+v", n)
	}
}

func TestAppLoginRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	a, _ := press(t, env.app(), "tab")
	a, cmd := press(t, a, "enter")
	if cmd != nil {
		t.Fatal("an incomplete form must not reach the API")
	}
	if a.form.status != "email is required" {
		t.Errorf("status = %q", a.form.status)
	}
	if env.api.Calls("/auth/login") != 0 {
		t.Error("login endpoint was called")
	}
}

func TestAppRegisterPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)
	a, _ := press(t, env.app(), "ctrl+r")
	if a.route.Name != router.Register {
		t.Fatalf("route = %q, want %q", a.route.Name, router.Register)
	}
	for i, v := range []string{"Grace", "Hopper", "g@x.com", "0123456789", "9876543210"} {
		a = typeText(t, a, v)
		if i < 4 {
			a, _ = press(t, a, "tab")
		}
	}
	a, cmd := press(t, a, "enter")
	if cmd != nil {
		t.Fatal("mismatched passwords must not be submitted")
	}
	if a.form.status != "passwords do not match" {
		t.Errorf("status = %q", a.form.status)
	}
}

func TestAppLoggedInUserIsSentHomeFromLogin(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "correct-horse-battery")

	a = a.navigate(router.Login)
	if a.route.Name != router.Home {
		t.Errorf("route = %q, want %q", a.route.Name, router.Home)
	}
	a = a.navigate(router.BeginResetPassword)
	if a.route.Name != router.BeginResetPassword {
		t.Errorf("reset password stays reachable when logged in, got %q", a.route.Name)
	}
}

func TestAppLogout(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "correct-horse-battery")

	a, cmd := press(t, a, "l")
	a = finish(t, a, cmd)
	m, _ := a.Update(sessionChangedMsg{})
	a = m.(App)

	if env.mgr.State().LoggedIn() {
		t.Fatal("session should be gone")
	}
	if a.route.Name != router.Login {
		t.Errorf("route = %q, want %q", a.route.Name, router.Login)
	}
	n, _ := env.notes.Last()
	if n.Message != "You have been logged out successfully" {
		t.Errorf("last notification = %+v", n)
	}
}

func TestAppSessionLossRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "correct-horse-battery")
	a = a.navigate(router.Settings)

	// The session ends behind the screen's back, as an expired refresh would.
	if err := env.mgr.DeleteAccount(t.Context()); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	m, _ := a.Update(sessionChangedMsg{})
	a = m.(App)
	if a.route.Name != router.Login {
		t.Errorf("route = %q, want %q", a.route.Name, router.Login)
	}
}

func TestAppDeleteAccountNeedsTwoPresses(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "correct-horse-battery")
	a, _ = press(t, a, "d")
	if a.route.Name != router.DeleteAccountSettings {
		t.Fatalf("route = %q", a.route.Name)
	}

	a, cmd := press(t, a, "y")
	if cmd != nil || !a.confirm {
		t.Fatal("first press should only arm the confirmation")
	}
	a, cmd = press(t, a, "y")
	finish(t, a, cmd)

	if env.api.Calls("/user") != 1 {
		t.Errorf("delete endpoint calls = %d, want 1", env.api.Calls("/user"))
	}
	if env.mgr.State().LoggedIn() {
		t.Error("session should end with the account")
	}
}

func TestAppChangeName(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app(), "a@x.com", "correct-horse-battery")
	a, _ = press(t, a, "s")
	if got := a.form.value(lblFirstName); got != "Ada" {
		t.Fatalf("first name prefilled = %q, want Ada", got)
	}

	a, _ = press(t, a, "tab")
	for range "Byron" {
		m, _ := a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
		a = m.(App)
	}
	a = typeText(t, a, "King")
	a, cmd := press(t, a, "enter")
	a = finish(t, a, cmd)

	if info := env.mgr.State().UserInfo(); info.Name != "Ada King" {
		t.Errorf("name = %q, want Ada King", info.Name)
	}
	if a.form.status != "name updated" {
		t.Errorf("status = %q", a.form.status)
	}
}

func TestAppToastExpires(t *testing.T) {
	a := newTestEnv(t).app()
	m, cmd := a.Update(toastMsg(notify.Notification{Severity: notify.Success, Title: "Hi", Duration: time.Millisecond}))
	a = m.(App)
	if a.toast == nil || cmd == nil {
		t.Fatal("toast should be shown with an expiry timer")
	}
	if !strings.Contains(a.View(), "Hi") {
		t.Error("toast should render")
	}

	// A newer toast outlives the older one's timer.
	m, _ = a.Update(toastMsg(notify.Notification{Title: "Second"}))
	a = m.(App)
	m, _ = a.Update(toastExpiredMsg{seq: 1})
	a = m.(App)
	if a.toast == nil || a.toast.Title != "Second" {
		t.Fatalf("toast = %+v, want Second", a.toast)
	}
	m, _ = a.Update(toastExpiredMsg{seq: 2})
	a = m.(App)
	if a.toast != nil {
		t.Error("toast should be hidden")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := newTestEnv(t).app()
	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyF1})
	a = m.(App)
	if !a.helpOpen || !strings.Contains(a.View(), "https://example.com/docs") {
		t.Fatal("help overlay should open and show the docs link")
	}
	a, _ = press(t, a, "esc")
	if a.helpOpen {
		t.Error("esc should close help")
	}
}

func TestAppQuit(t *testing.T) {
	a := newTestEnv(t).app()
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command on ctrl+c, got nil")
	}
}
