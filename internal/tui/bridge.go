package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatehouse/internal/notify"
	"github.com/naveenspark/gatehouse/internal/router"
	"github.com/naveenspark/gatehouse/internal/session"
	"github.com/naveenspark/gatehouse/pkg/domain"
)

// sessionChangedMsg is posted after every login, refresh and logout.
type sessionChangedMsg struct {
	session *domain.Session
}

// routeMsg is posted after every completed navigation.
type routeMsg struct {
	route router.Route
}

// toastMsg asks the app to show a notification.
type toastMsg notify.Notification

// Bridge forwards events raised outside the program into it, in the order
// they were raised. It is the session manager's Notifier while the TUI
// runs. Events raised before Attach are dropped.
type Bridge struct {
	mu    sync.Mutex
	send  func(tea.Msg)
	queue []tea.Msg

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates a detached Bridge.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

// Attach starts delivering events to send, normally (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	first := b.send == nil
	b.send = send
	b.mu.Unlock()
	if first {
		go b.forward()
	}
}

// Close stops delivery. Queued events are dropped.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Notify implements notify.Notifier.
func (b *Bridge) Notify(n notify.Notification) {
	b.post(toastMsg(n))
}

// Watch forwards session changes and navigations. The returned func stops
// forwarding session changes.
func (b *Bridge) Watch(state *session.State, rt *router.Router) func() {
	rt.OnNavigate(func(r router.Route) { b.post(routeMsg{route: r}) })
	return state.Subscribe(func(s *domain.Session) { b.post(sessionChangedMsg{session: s}) })
}

// post only queues: Program.Send blocks until the event loop reads the
// message, and callers may be running inside it.
func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	if b.send == nil {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// forward is the single goroutine that hands queued events to send.
func (b *Bridge) forward() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}
		for {
			b.mu.Lock()
			msgs, send := b.queue, b.send
			b.queue = nil
			b.mu.Unlock()
			if len(msgs) == 0 {
				break
			}
			for _, m := range msgs {
				select {
				case <-b.done:
					return
				default:
				}
				send(m)
			}
		}
	}
}
