package chat

import (
	"context"
	"log/slog"

	"github.com/nfrund/homeplace/internal/connection"
)

// Sender transmits raw draft text.
type Sender interface {
	Send(ctx context.Context, text string) error
	Ready() bool
}

// Attacher registers a frame listener on a shared connection.
type Attacher interface {
	Attach(ctx context.Context, l connection.Listener) (*connection.Subscription, error)
}

// Transport is what a Session mounts on. *connection.Manager implements it.
type Transport interface {
	Sender
	Attacher
}

// ScrollLocker toggles the page-wide scroll lock.
type ScrollLocker interface {
	LockScroll()
	UnlockScroll()
}

// Alerter shows a short-lived message to the user.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// Variant selects how the panel behaves around open and close.
type Variant int

const (
	// VariantWindow is the floating widget. History survives close and reopen.
	VariantWindow Variant = iota
	// VariantAssistant is the full-screen panel. It locks page scroll while
	// open and forgets history on close.
	VariantAssistant
)

// Option configures a Session.
type Option func(*Session)

func WithVariant(v Variant) Option {
	return func(s *Session) { s.variant = v }
}

func WithScrollLocker(l ScrollLocker) Option {
	return func(s *Session) { s.scroll = l }
}

func WithAlerter(a Alerter) Option {
	return func(s *Session) { s.alerter = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMaxMessages caps the message log, evicting the oldest entries. Zero
// means unbounded.
func WithMaxMessages(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxMessages = n
		}
	}
}
