package tui

import (
	"strconv"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/gatehouse/internal/notify"
	"github.com/naveenspark/gatehouse/internal/router"
)

func collect(b *Bridge) <-chan tea.Msg {
	ch := make(chan tea.Msg, 16)
	b.Attach(func(m tea.Msg) { ch <- m })
	return ch
}

func next(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message forwarded")
		return nil
	}
}

func TestBridgeDropsBeforeAttach(t *testing.T) {
	b := NewBridge()
	b.Notify(notify.Notification{Title: "lost"})
	ch := collect(b)
	b.Notify(notify.Notification{Title: "kept"})
	m, ok := next(t, ch).(toastMsg)
	if !ok || m.Title != "kept" {
		t.Fatalf("got %#v, want the kept toast", m)
	}
}

func TestBridgeWatch(t *testing.T) {
	env := newTestEnv(t)
	b := NewBridge()
	ch := collect(b)
	stop := b.Watch(env.mgr.State(), env.rt)
	defer stop()

	if _, err := env.rt.Push(router.Register); err != nil {
		t.Fatal(err)
	}
	if m, ok := next(t, ch).(routeMsg); !ok || m.route.Name != router.Register {
		t.Fatalf("expected a route message for Register, got %#v", m)
	}

	if err := env.mgr.Login(t.Context(), "a@x.com", "correct-horse-battery"); err != nil {
		t.Fatal(err)
	}
	m, ok := next(t, ch).(sessionChangedMsg)
	if !ok || m.session == nil || m.session.Email != "a@x.com" {
		t.Fatalf("expected a session change carrying the new session, got %#v", m)
	}
}

func TestBridgeKeepsOrder(t *testing.T) {
	b := NewBridge()
	defer b.Close()
	ch := collect(b)

	const n = 100
	for i := 0; i < n; i++ {
		b.Notify(notify.Notification{Title: strconv.Itoa(i)})
	}
	for i := 0; i < n; i++ {
		m, ok := next(t, ch).(toastMsg)
		if !ok || m.Title != strconv.Itoa(i) {
			t.Fatalf("message %d: got %#v", i, m)
		}
	}
}

func TestBridgeCloseStopsDelivery(t *testing.T) {
	b := NewBridge()
	ch := collect(b)
	b.Close()
	b.Close()

	b.Notify(notify.Notification{Title: "late"})
	select {
	case m := <-ch:
		t.Fatalf("got %#v after Close", m)
	case <-time.After(50 * time.Millisecond):
	}
}
