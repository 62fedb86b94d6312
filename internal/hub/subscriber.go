package hub

import (
	"fmt"
	"time"
)

// Notification is the immutable snapshot handed to every subscriber during
// one fan-out pass. Seq increases by one per SetState on the same hub.
type Notification struct {
	Seq   uint64
	State interface{}
	At    time.Time
}

// Handler receives one notification. Returning an error marks the delivery
// failed for this subscriber only; the pass continues.
type Handler func(Notification) error

// Subscriber is anything that receives notifications under a stable
// identity. The hub tracks subscribers by ID only and never owns them.
type Subscriber interface {
	ID() string
	Notify(Notification) error
}

// WithTimeout wraps h so a delivery taking longer than d fails instead of
// stalling the fan-out. The hub imposes no timeout itself; callers supplying
// a handler that may block should wrap it here.
func WithTimeout(h Handler, d time.Duration) Handler {
	return func(n Notification) error {
		done := make(chan error, 1)
		go func() { done <- h(n) }()
		select {
		case err := <-done:
			return err
		case <-time.After(d):
			return fmt.Errorf("notify timed out after %s", d)
		}
	}
}
