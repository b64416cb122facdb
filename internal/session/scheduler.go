package session

import (
	"sync"
	"time"
)

// Scheduler owns a single delayed task. Arming replaces whatever was armed
// before, so at most one task is ever pending.
type Scheduler struct {
	mu    sync.Mutex
	clock Clock
	timer Timer
	gen   uint64
	due   time.Time
}

// NewScheduler creates a Scheduler driven by clock.
func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Arm cancels any pending task and runs fn after d.
func (s *Scheduler) Arm(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.due = s.clock.Now().Add(d)
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen != gen {
			// Superseded between firing and acquiring the lock.
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.due = time.Time{}
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending task, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Pending reports whether a task is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Due returns when the pending task fires.
func (s *Scheduler) Due() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.due, true
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.due = time.Time{}
	s.gen++
}
