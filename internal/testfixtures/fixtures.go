// Package testfixtures holds fakes shared by service and handler tests.
package testfixtures

import (
	"context"
	"sync"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/realtime"
)

// ReferenceTime is the instant every test clock starts at.
func ReferenceTime() time.Time {
	return time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)
}

// Clock is a controllable time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

func NewClock() *Clock {
	return &Clock{current: ReferenceTime()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Mailer records every dispatched message instead of sending it.
type Mailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *Mailer) Dispatch(msg mail.Message) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
}

func (m *Mailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// LastCode returns the code of the newest message of kind sent to to.
func (m *Mailer) LastCode(to string, kind mail.Kind) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.To == to && msg.Kind == kind {
			return msg.Code, true
		}
	}
	return "", false
}

// Scope values recorded by Notifier.
const (
	ScopeAll    = "all"
	ScopeAdmins = "admins"
	ScopeUser   = "user"
)

type SentEvent struct {
	Scope string
	Email string
	Event realtime.Event
}

// Notifier records fan-out calls.
type Notifier struct {
	mu     sync.Mutex
	events []SentEvent
}

func (n *Notifier) BroadcastAll(event realtime.Event) {
	n.record(SentEvent{Scope: ScopeAll, Event: event})
}

func (n *Notifier) BroadcastToAdmins(event realtime.Event) {
	n.record(SentEvent{Scope: ScopeAdmins, Event: event})
}

func (n *Notifier) SendToUser(email string, event realtime.Event) {
	n.record(SentEvent{Scope: ScopeUser, Email: email, Event: event})
}

func (n *Notifier) record(e SentEvent) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *Notifier) Events() []SentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentEvent(nil), n.events...)
}

// OfType filters the recorded events by type.
func (n *Notifier) OfType(t realtime.EventType) []SentEvent {
	var out []SentEvent
	for _, e := range n.Events() {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	n.events = nil
	n.mu.Unlock()
}

// Throttle answers Allow with a fixed verdict.
type Throttle struct {
	Deny bool
}

func (t Throttle) Allow(_ context.Context, _ string) (bool, error) {
	return !t.Deny, nil
}
