package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrReentrantDelivery is returned when SetState is invoked from inside
	// a subscriber callback on the same hub. The call is rejected instead of
	// queued because the calling goroutine already holds the fan-out turn.
	ErrReentrantDelivery = errors.New("hub: SetState called from inside a subscriber callback")

	// ErrConfigured is returned by Configure once the process-wide hub
	// has already been constructed.
	ErrConfigured = errors.New("hub: default instance already constructed")
)

// DeliveryError records a single subscriber's failure during one fan-out
// pass. Failures are collected, never fatal to the pass.
type DeliveryError struct {
	SubscriberID string
	Err          error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.SubscriberID, e.Err)
}

func (e DeliveryError) Unwrap() error { return e.Err }
