package app

import "time"

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notification is a transient status line message.
type Notification struct {
	Level   Level
	Message string
	Expires time.Time
}

// Notifications keeps the currently visible messages and drops them as
// they expire.
type Notifications struct {
	items []Notification
	ttl   time.Duration
	now   func() time.Time
}

// NewNotifications creates a manager with a five second display time.
func NewNotifications() *Notifications {
	return &Notifications{
		ttl: 5 * time.Second,
		now: time.Now,
	}
}

// Add appends a message at the given level.
func (n *Notifications) Add(level Level, message string) {
	n.items = append(n.items, Notification{
		Level:   level,
		Message: message,
		Expires: n.now().Add(n.ttl),
	})
}

// Info adds an informational message.
func (n *Notifications) Info(message string) {
	n.Add(LevelInfo, message)
}

// Error adds an error message.
func (n *Notifications) Error(message string) {
	n.Add(LevelError, message)
}

// Active drops expired messages and returns the rest, oldest first.
func (n *Notifications) Active() []Notification {
	now := n.now()
	kept := n.items[:0]
	for _, item := range n.items {
		if item.Expires.After(now) {
			kept = append(kept, item)
		}
	}
	n.items = kept
	return n.items
}
