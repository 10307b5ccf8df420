// Package notify delivers user-facing mutation outcome messages. It is a
// passive sink: implementations make no decisions and never fail the caller.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Type classifies a notification.
type Type string

// Notification types shown to the user.
const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
)

// Message is one notification, optionally carrying a bound action (for
// example an undo callback) with its display label.
type Message struct {
	Text        string
	Type        Type
	Duration    time.Duration
	ActionLabel string
	Action      func()
}

// Notifier delivers messages. Show never returns an error and must not
// panic; callers are responsible for not spamming (no de-duplication here).
type Notifier interface {
	Show(msg Message)
}

// LogNotifier writes notifications to a structured logger. It is the default
// sink in headless contexts.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a notifier over the given logger, defaulting to
// slog.Default when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Show logs the message at a level matching its type.
func (n *LogNotifier) Show(msg Message) {
	attrs := []any{"type", string(msg.Type)}
	if msg.ActionLabel != "" {
		attrs = append(attrs, "action", msg.ActionLabel)
	}
	if msg.Duration > 0 {
		attrs = append(attrs, "duration", msg.Duration)
	}
	if msg.Type == TypeError {
		n.logger.Error(msg.Text, attrs...)
		return
	}
	n.logger.Info(msg.Text, attrs...)
}

// Noop discards all messages.
type Noop struct{}

// Show discards the message.
func (Noop) Show(Message) {}

// Capture retains every shown message, for tests.
type Capture struct {
	mu       sync.Mutex
	messages []Message
}

// Show appends the message.
func (c *Capture) Show(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of everything shown so far.
func (c *Capture) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Last returns the most recent message, if any.
func (c *Capture) Last() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
