// Package hub implements the process-wide notification registry: one
// mutable state cell plus a dynamic subscriber set with ordered,
// error-isolated fan-out.
package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/petermattis/goid"

	"notifyhub/internal/logging"
	"notifyhub/internal/metrics"
)

// DefaultHistorySize bounds the retained notification history when the
// caller does not pick a size.
const DefaultHistorySize = 128

// Config carries the knobs fixed at construction time.
type Config struct {
	// InitialState is the value State returns before the first SetState.
	InitialState interface{}
	// HistorySize bounds the retained notification history. Negative
	// disables history; zero selects DefaultHistorySize.
	HistorySize int
	Metrics     metrics.Provider
	Logger      logging.Logger
}

type subscription struct {
	id      string
	handler Handler
	removed atomic.Bool
}

// stateBox keeps the atomic.Value payload type consistent across stores.
type stateBox struct{ val interface{} }

// Hub holds the current state and the subscriber set. All methods are safe
// for concurrent use.
type Hub struct {
	log     logging.Logger
	metrics metrics.Provider

	mu   sync.RWMutex
	subs []*subscription // attachment order, significant for delivery
	byID map[string]*subscription

	state atomic.Value // stateBox
	seq   atomic.Uint64

	fanout     sync.Mutex   // serializes SetState passes
	delivering atomic.Int64 // goroutine id of the active fan-out, 0 when idle

	history *lru.Cache[uint64, Notification]
}

// New constructs a Hub. Construction fails rather than producing a
// half-initialized instance.
func New(cfg Config) (*Hub, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}

	h := &Hub{
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		byID:    make(map[string]*subscription),
	}
	h.state.Store(stateBox{cfg.InitialState})

	size := cfg.HistorySize
	if size == 0 {
		size = DefaultHistorySize
	}
	if size > 0 {
		cache, err := lru.New[uint64, Notification](size)
		if err != nil {
			return nil, fmt.Errorf("create history cache: %w", err)
		}
		h.history = cache
	}

	return h, nil
}

// Subscribe registers handler under id, appended at the end of the delivery
// order. It returns false without side effects if id is already registered
// or the input is unusable. Safe to call from inside a callback; the new
// subscriber only sees notifications after the in-flight pass.
func (h *Hub) Subscribe(id string, handler Handler) bool {
	if id == "" || handler == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.byID[id]; exists {
		return false
	}

	s := &subscription{id: id, handler: handler}
	h.subs = append(h.subs, s)
	h.byID[id] = s
	h.metrics.SetGauge("hub_subscribers", float64(len(h.subs)))

	return true
}

// Attach registers a Subscriber under its own ID.
func (h *Hub) Attach(s Subscriber) bool {
	if s == nil {
		return false
	}
	return h.Subscribe(s.ID(), s.Notify)
}

// Unsubscribe removes id and reports whether it was present. An in-flight
// fan-out that has not yet reached the subscriber skips it.
func (h *Hub) Unsubscribe(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, exists := h.byID[id]
	if !exists {
		return false
	}

	delete(h.byID, id)
	s.removed.Store(true)
	for i, e := range h.subs {
		if e == s {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
	h.metrics.SetGauge("hub_subscribers", float64(len(h.subs)))

	return true
}

// SetState replaces the current state and synchronously delivers it to the
// subscribers registered at the start of the call, in attachment order.
// Failing subscribers are skipped over, their errors collected into the
// returned slice. Concurrent callers queue; a call made from inside a
// running callback on this hub returns ErrReentrantDelivery.
func (h *Hub) SetState(state interface{}) ([]DeliveryError, error) {
	gid := goid.Get()
	if h.delivering.Load() == gid {
		return nil, ErrReentrantDelivery
	}

	h.fanout.Lock()
	defer h.fanout.Unlock()

	start := time.Now()
	n := Notification{
		Seq:   h.seq.Add(1),
		State: state,
		At:    start,
	}

	// Linearization point: State observes the new value from here on,
	// regardless of fan-out progress.
	h.state.Store(stateBox{state})
	if h.history != nil {
		h.history.Add(n.Seq, n)
	}

	snapshot := h.snapshot()

	h.delivering.Store(gid)
	defer h.delivering.Store(0)

	var errs []DeliveryError
	for _, s := range snapshot {
		if s.removed.Load() {
			continue
		}
		if err := h.invoke(s, n); err != nil {
			h.log.Warnf("delivery to %s failed: %v", s.id, err)
			errs = append(errs, DeliveryError{SubscriberID: s.id, Err: err})
		}
	}

	h.metrics.IncCounter("notifications_total", 1)
	if len(errs) > 0 {
		h.metrics.IncCounter("delivery_errors_total", float64(len(errs)))
	}
	h.metrics.Observe("fanout_latency_ms", float64(time.Since(start).Microseconds())/1000.0)

	return errs, nil
}

// State returns the most recently set state. It never blocks: reads are
// independent of fan-out and of subscriber set mutation.
func (h *Hub) State() interface{} {
	return h.state.Load().(stateBox).val
}

// Seq returns the sequence number of the most recent SetState, 0 before any.
func (h *Hub) Seq() uint64 { return h.seq.Load() }

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Recent returns up to n retained notifications, newest first. It returns
// nil when history is disabled.
func (h *Hub) Recent(n int) []Notification {
	if h.history == nil || n <= 0 {
		return nil
	}

	keys := h.history.Keys() // oldest to newest
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}

	out := make([]Notification, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := h.history.Peek(keys[i]); ok {
			out = append(out, v)
		}
	}
	return out
}

// snapshot copies the subscriber slice so the fan-out iterates a stable
// view while Subscribe/Unsubscribe stay free to mutate the live set.
func (h *Hub) snapshot() []*subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*subscription, len(h.subs))
	copy(out, h.subs)
	return out
}

// invoke runs one handler, converting a panic into a delivery error so a
// broken subscriber cannot abort the pass.
func (h *Hub) invoke(s *subscription, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return s.handler(n)
}
