// Package notify emits transient acknowledgments that expire on their own,
// used after destructive actions like deleting a history entry.
package notify

import (
	"sync"
	"time"
)

const DefaultTTL = 2 * time.Second

// Notification carries no data beyond the fact that an action completed.
type Notification struct {
	Message string
	FiredAt time.Time
}

// Notifier keeps at most one live notification. A new fire supersedes any
// pending expiry; nothing queues.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Notification
	timer   *time.Timer
	seq     uint64
}

func New(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl}
}

// Fire publishes a notification that clears itself after the TTL.
func (n *Notifier) Fire(message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}

	n.seq++
	seq := n.seq
	note := Notification{Message: message, FiredAt: time.Now()}
	n.current = &note

	n.timer = time.AfterFunc(n.ttl, func() {
		n.expire(seq)
	})

	return note
}

// Current reports the live notification, if one has not yet expired.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	// A later fire superseded this expiry.
	if seq != n.seq {
		return
	}
	n.current = nil
}
