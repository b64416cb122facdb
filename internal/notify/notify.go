// Package notify defines the toast capability used to surface outcomes to
// the user, and the display policy for API problems.
package notify

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/naveenspark/gatehouse/pkg/client"
	"github.com/naveenspark/gatehouse/pkg/domain"
)

// DefaultDuration is how long a notification stays on screen.
const DefaultDuration = 5 * time.Second

// Severity of a notification.
type Severity int

const (
	Success Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Notification is one toast.
type Notification struct {
	Severity Severity
	Title    string
	Message  string
	Duration time.Duration
}

// Notifier displays notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Send builds a notification with the default duration and delivers it.
func Send(n Notifier, sev Severity, title, message string) {
	n.Notify(Notification{Severity: sev, Title: title, Message: message, Duration: DefaultDuration})
}

// DisplayProblem shows p as an error when the server is at fault and as a
// warning otherwise.
func DisplayProblem(n Notifier, p *domain.Problem) {
	if p == nil {
		return
	}
	sev := Warning
	if p.ServerSide() {
		sev = Error
	}
	Send(n, sev, p.Title, p.Detail)
}

// DisplayError translates err into a Problem and displays it.
func DisplayError(n Notifier, err error) {
	if err == nil {
		return
	}
	var p *domain.Problem
	if !errors.As(err, &p) {
		p = client.Translate(err)
	}
	DisplayProblem(n, p)
}

// Writer prints notifications as lines, for headless commands.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Notifier that prints to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Notify(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, "[%s] %s: %s\n", n.Severity, n.Title, n.Message) //nolint:errcheck
}

// Log records notifications on a zerolog logger.
type Log struct {
	log zerolog.Logger
}

// NewLog creates a Notifier that logs every notification.
func NewLog(log zerolog.Logger) Log {
	return Log{log: log}
}

func (l Log) Notify(n Notification) {
	ev := l.log.Info()
	switch n.Severity {
	case Warning:
		ev = l.log.Warn()
	case Error:
		ev = l.log.Error()
	}
	ev.Str("title", n.Title).Dur("duration", n.Duration).Msg(n.Message)
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// All returns a copy of the received notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}
