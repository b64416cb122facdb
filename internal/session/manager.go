// Package session manages the authenticated session: persistence, the
// in-memory state, silent token refresh and the login/logout operations.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/naveenspark/gatehouse/internal/notify"
	"github.com/naveenspark/gatehouse/internal/router"
	"github.com/naveenspark/gatehouse/pkg/domain"
)

// RefreshLeadTime is how long before access-token expiry the silent refresh runs.
const RefreshLeadTime = time.Minute

// maxImmediateRefreshes bounds back-to-back refreshes that return an
// already-expired access token.
const maxImmediateRefreshes = 3

// Transport is the subset of the API the Manager talks to.
type Transport interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) error
	Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error)
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerificationEmail(ctx context.Context, token string) error
	BeginResetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, newPassword string) error
	ChangeName(ctx context.Context, firstName, lastName string) error
	DeleteUser(ctx context.Context) error
}

// Navigator moves the user to a named route.
type Navigator interface {
	Navigate(route string) error
}

// Options configures a Manager. Zero values get sensible defaults.
type Options struct {
	Clock     Clock
	Notifier  notify.Notifier
	Navigator Navigator
	Logger    zerolog.Logger
}

// Manager runs the authentication operations and the refresh state machine.
type Manager struct {
	api   Transport
	state *State
	store *Store
	sched *Scheduler
	clock Clock
	note  notify.Notifier
	nav   Navigator
	log   zerolog.Logger

	// mu makes "change state, then persist" one step.
	mu        sync.Mutex
	immediate int
}

// NewManager wires a Manager. state is shared with readers such as the
// route guard and the API client's token source.
func NewManager(api Transport, state *State, store *Store, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLog(opts.Logger)
	}
	return &Manager{
		api:   api,
		state: state,
		store: store,
		sched: NewScheduler(opts.Clock),
		clock: opts.Clock,
		note:  opts.Notifier,
		nav:   opts.Navigator,
		log:   opts.Logger.With().Str("component", "session").Logger(),
	}
}

// SetNavigator installs the navigator used after logout and account deletion.
func (m *Manager) SetNavigator(nav Navigator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nav = nav
}

// State returns the shared session state.
func (m *Manager) State() *State {
	return m.state
}

// Scheduler exposes the refresh timer, mainly for status displays.
func (m *Manager) Scheduler() *Scheduler {
	return m.sched
}

// Restore loads the persisted session at startup. A missing or expired
// record is cleared from storage.
func (m *Manager) Restore(ctx context.Context) error {
	sess, err := m.store.Read(m.clock.Now())
	if err != nil {
		m.log.Warn().Err(err).Msg("discarding unreadable stored session")
		sess = nil
	}
	if sess == nil {
		if err := m.store.Remove(); err != nil {
			return fmt.Errorf("session.Restore: %w", err)
		}
		return nil
	}

	m.mu.Lock()
	m.state.set(sess)
	m.immediate = 0
	m.mu.Unlock()
	m.log.Info().Str("user_id", sess.UserID).Msg("restored session")

	if err := m.ScheduleRefresh(ctx); err != nil && !errors.Is(err, ErrNotLoggedIn) {
		return fmt.Errorf("session.Restore: %w", err)
	}
	return nil
}

// ScheduleRefresh evaluates the refresh state machine:
//
//  1. no session: nothing to schedule, ErrNotLoggedIn
//  2. refresh token expired: the session ends
//  3. access token expired: refresh now, end the session if that fails
//  4. otherwise: refresh RefreshLeadTime before the access token expires
//
// Any previously armed refresh is cancelled first.
func (m *Manager) ScheduleRefresh(ctx context.Context) error {
	m.sched.Cancel()

	sess, version := m.state.Snapshot()
	if sess == nil {
		m.log.Error().Msg("cannot schedule refresh: not logged in")
		return ErrNotLoggedIn
	}

	now := m.clock.Now()
	switch {
	case sess.RefreshExpired(now):
		m.log.Info().Time("refresh_expiration", sess.RefreshTokenExpiration).Msg("refresh token expired, ending session")
		m.expire(version)

	case sess.AccessExpired(now):
		m.mu.Lock()
		m.immediate++
		n := m.immediate
		m.mu.Unlock()
		if n > maxImmediateRefreshes {
			m.log.Error().Int("attempts", n-1).Msg("refresh keeps returning expired access tokens, ending session")
			m.expire(version)
			return nil
		}
		if err := m.Refresh(ctx); err != nil {
			if errors.Is(err, ErrNotSaved) {
				m.log.Warn().Err(err).Msg("session refreshed but not saved")
				return err
			}
			m.log.Error().Err(err).Msg("immediate refresh failed, ending session")
			m.expire(version)
		}

	default:
		m.mu.Lock()
		m.immediate = 0
		m.mu.Unlock()
		delay := sess.AccessTokenExpiration.Add(-RefreshLeadTime).Sub(now)
		if delay < 0 {
			delay = 0
		}
		m.sched.Arm(delay, m.refreshFromTimer)
		m.log.Debug().Dur("in", delay).Msg("refresh scheduled")
	}
	return nil
}

func (m *Manager) refreshFromTimer() {
	version := m.state.Version()
	if err := m.Refresh(context.Background()); err != nil {
		if errors.Is(err, ErrNotSaved) {
			m.log.Warn().Err(err).Msg("session refreshed but not saved")
			return
		}
		m.log.Error().Err(err).Msg("scheduled refresh failed, ending session")
		m.expire(version)
	}
}

// Login authenticates and replaces the current session. On failure the
// current session is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}

	sess := res.Session()
	m.mu.Lock()
	m.state.set(sess)
	m.immediate = 0
	persistErr := m.store.Write(sess)
	m.mu.Unlock()
	m.log.Info().Str("user_id", sess.UserID).Msg("logged in")

	m.ScheduleRefresh(ctx) //nolint:errcheck // the session was just set
	if persistErr != nil {
		return fmt.Errorf("session.Login: %w: %w", ErrNotSaved, persistErr)
	}
	return nil
}

// Register creates an account without logging in.
func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := m.api.Register(ctx, req); err != nil {
		return fmt.Errorf("session.Register: %w", err)
	}
	return nil
}

// Refresh renews the session with the refresh token. Without a session it
// does nothing. A response that arrives after the session changed (logout,
// login or another refresh) is discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	sess, version := m.state.Snapshot()
	if sess == nil {
		return nil
	}

	res, err := m.api.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return fmt.Errorf("session.Refresh: %w", err)
	}

	next := res.Session()
	m.mu.Lock()
	if m.state.Version() != version {
		m.mu.Unlock()
		m.log.Debug().Msg("discarding stale refresh response")
		return nil
	}
	m.state.set(next)
	persistErr := m.store.Write(next)
	m.mu.Unlock()
	m.log.Debug().Time("access_expiration", next.AccessTokenExpiration).Msg("session refreshed")

	m.ScheduleRefresh(ctx) //nolint:errcheck // a concurrent logout is logged there
	if persistErr != nil {
		return fmt.Errorf("session.Refresh: %w: %w", ErrNotSaved, persistErr)
	}
	return nil
}

// Logout ends the session on the server and locally, then sends the user
// to the login route. Without a session it only shows an error.
func (m *Manager) Logout(ctx context.Context) error {
	if !m.state.LoggedIn() {
		notify.Send(m.note, notify.Error, "Logout failed", "Failed to logout, you are not logged in")
		return nil
	}

	if err := m.api.Logout(ctx); err != nil {
		m.log.Warn().Err(err).Msg("server-side logout failed")
	}
	if err := m.destroy(); err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	m.log.Info().Msg("logged out")

	notify.Send(m.note, notify.Success, "Success", "You have been logged out successfully")
	m.navigate(router.Login)
	return nil
}

// --- Account operations ---

// VerifyEmail confirms the address behind token.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if err := m.api.VerifyEmail(ctx, token); err != nil {
		return fmt.Errorf("session.VerifyEmail: %w", err)
	}
	return nil
}

// ResendVerificationEmail requests a new verification mail.
func (m *Manager) ResendVerificationEmail(ctx context.Context, token string) error {
	if err := m.api.ResendVerificationEmail(ctx, token); err != nil {
		return fmt.Errorf("session.ResendVerificationEmail: %w", err)
	}
	return nil
}

// BeginResetPassword mails a reset link to email.
func (m *Manager) BeginResetPassword(ctx context.Context, email string) error {
	if err := m.api.BeginResetPassword(ctx, email); err != nil {
		return fmt.Errorf("session.BeginResetPassword: %w", err)
	}
	return nil
}

// ResetPassword sets a new password from a reset link token.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := m.api.ResetPassword(ctx, token, newPassword); err != nil {
		return fmt.Errorf("session.ResetPassword: %w", err)
	}
	return nil
}

// ChangePassword changes the logged-in user's password.
func (m *Manager) ChangePassword(ctx context.Context, newPassword string) error {
	if !m.state.LoggedIn() {
		return fmt.Errorf("session.ChangePassword: %w", ErrNotLoggedIn)
	}
	if err := m.api.ChangePassword(ctx, newPassword); err != nil {
		return fmt.Errorf("session.ChangePassword: %w", err)
	}
	return nil
}

// ChangeName updates the user's name on the server and in the session.
func (m *Manager) ChangeName(ctx context.Context, firstName, lastName string) error {
	if !m.state.LoggedIn() {
		return fmt.Errorf("session.ChangeName: %w", ErrNotLoggedIn)
	}
	if err := m.api.ChangeName(ctx, firstName, lastName); err != nil {
		return fmt.Errorf("session.ChangeName: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.state.setProfile(firstName, lastName)
	if sess == nil {
		return nil
	}
	if err := m.store.Write(sess); err != nil {
		return fmt.Errorf("session.ChangeName: %w", err)
	}
	return nil
}

// DeleteAccount deletes the user's account and ends the session.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	if !m.state.LoggedIn() {
		return fmt.Errorf("session.DeleteAccount: %w", ErrNotLoggedIn)
	}
	if err := m.api.DeleteUser(ctx); err != nil {
		return fmt.Errorf("session.DeleteAccount: %w", err)
	}
	if err := m.destroy(); err != nil {
		return fmt.Errorf("session.DeleteAccount: %w", err)
	}
	notify.Send(m.note, notify.Success, "Account deleted", "Your account has been deleted")
	m.navigate(router.Login)
	return nil
}

// destroy ends the session unconditionally.
func (m *Manager) destroy() error {
	m.sched.Cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.set(nil)
	return m.store.Remove()
}

// expire ends the session only if it is still the one identified by version.
func (m *Manager) expire(version uint64) {
	m.mu.Lock()
	if m.state.Version() != version {
		m.mu.Unlock()
		return
	}
	m.sched.Cancel()
	m.state.set(nil)
	err := m.store.Remove()
	m.mu.Unlock()
	if err != nil {
		m.log.Error().Err(err).Msg("remove expired session")
	}
}

func (m *Manager) navigate(route string) {
	m.mu.Lock()
	nav := m.nav
	m.mu.Unlock()
	if nav == nil {
		return
	}
	if err := nav.Navigate(route); err != nil {
		m.log.Warn().Err(err).Str("route", route).Msg("navigation failed")
	}
}
