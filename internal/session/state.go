package session

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"

	"github.com/naveenspark/gatehouse/pkg/domain"
)

var (
	// ErrNotLoggedIn is returned when an operation needs a session and there is none.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNotSaved marks a session that is live in memory but could not be
	// written to storage.
	ErrNotSaved = errors.New("session not saved")
)

// State holds the current session, if any. Readers get copies; the only
// mutator is set, used by the Manager.
type State struct {
	mu        sync.RWMutex
	current   *domain.Session
	version   uint64
	nextID    int
	observers map[int]func(*domain.Session)
}

// NewState creates an empty (logged out) State.
func NewState() *State {
	return &State{observers: make(map[int]func(*domain.Session))}
}

// Current returns a copy of the session, or nil when logged out.
func (s *State) Current() *domain.Session {
	sess, _ := s.Snapshot()
	return sess
}

// Snapshot returns a copy of the session together with its version.
func (s *State) Snapshot() (*domain.Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, s.version
	}
	cp := *s.current
	return &cp, s.version
}

// Version increases on every change of the session.
func (s *State) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LoggedIn reports whether a session exists.
func (s *State) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// AccessToken returns the current access token.
func (s *State) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return "", false
	}
	return s.current.AccessToken, true
}

// RefreshToken returns the current refresh token.
func (s *State) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return "", false
	}
	return s.current.RefreshToken, true
}

// UserInfo returns the logged-in user's profile, or nil.
func (s *State) UserInfo() *domain.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	info := s.current.UserInfo()
	return &info
}

// Token implements oauth2.TokenSource with the current access token.
func (s *State) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotLoggedIn
	}
	return &oauth2.Token{
		AccessToken:  s.current.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.current.RefreshToken,
		Expiry:       s.current.AccessTokenExpiration,
	}, nil
}

// Subscribe registers fn to be called with a copy of the session after
// every change. The returned func unsubscribes.
func (s *State) Subscribe(fn func(*domain.Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// set replaces the session (nil logs out) and notifies observers.
func (s *State) set(sess *domain.Session) uint64 {
	s.mu.Lock()
	if sess == nil {
		s.current = nil
	} else {
		cp := *sess
		s.current = &cp
	}
	s.version++
	v := s.version
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, sess)
	return v
}

// setProfile renames the current user. The tokens are unchanged, so the
// version is too and an in-flight refresh still lands. It returns the
// updated session, or nil when logged out.
func (s *State) setProfile(firstName, lastName string) *domain.Session {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	s.current.FirstName, s.current.LastName = firstName, lastName
	sess := *s.current
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, &sess)
	return &sess
}

func (s *State) observersLocked() []func(*domain.Session) {
	observers := make([]func(*domain.Session), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	return observers
}

func (s *State) notify(observers []func(*domain.Session), sess *domain.Session) {
	for _, fn := range observers {
		if sess == nil {
			fn(nil)
			continue
		}
		cp := *sess
		fn(&cp)
	}
}

var _ oauth2.TokenSource = (*State)(nil)
