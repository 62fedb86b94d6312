package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h, err := New(Config{InitialState: "initial"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h
}

// recorder collects the states it receives, in order.
type recorder struct {
	mu     sync.Mutex
	states []interface{}
}

func (r *recorder) handler() Handler {
	return func(n Notification) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, n.State)
		return nil
	}
}

func (r *recorder) got() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.states))
	copy(out, r.states)
	return out
}

func TestSubscribeDuplicateRejected(t *testing.T) {
	h := newTestHub(t)

	if !h.Subscribe("a", func(Notification) error { return nil }) {
		t.Fatal("first subscribe should succeed")
	}
	if h.Subscribe("a", func(Notification) error { return nil }) {
		t.Fatal("duplicate subscribe should return false")
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Len())
	}
}

func TestSubscribeInvalidInput(t *testing.T) {
	h := newTestHub(t)

	if h.Subscribe("", func(Notification) error { return nil }) {
		t.Fatal("empty id should be rejected")
	}
	if h.Subscribe("a", nil) {
		t.Fatal("nil handler should be rejected")
	}
	if h.Len() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", h.Len())
	}
}

func TestDeliveryOrderIsAttachmentOrder(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var order []string
	for _, id := range []string{"s1", "s2", "s3"} {
		id := id
		h.Subscribe(id, func(n Notification) error {
			mu.Lock()
			defer mu.Unlock()
			if n.State != "x" {
				t.Errorf("%s received %v, want x", id, n.State)
			}
			order = append(order, id)
			return nil
		})
	}

	errs, err := h.SetState("x")
	if err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected delivery errors: %v", errs)
	}

	want := []string{"s1", "s2", "s3"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order %v, want %v", order, want)
		}
	}
}

func TestSubscriberAddedMidPassMissesCurrentNotification(t *testing.T) {
	h := newTestHub(t)

	late := &recorder{}
	h.Subscribe("s1", func(n Notification) error {
		// First pass only: register a new subscriber from inside the callback.
		if n.State == "x" {
			if !h.Subscribe("late", late.handler()) {
				t.Error("re-entrant subscribe should succeed")
			}
		}
		return nil
	})

	if _, err := h.SetState("x"); err != nil {
		t.Fatalf("SetState(x) failed: %v", err)
	}
	if got := late.got(); len(got) != 0 {
		t.Fatalf("late subscriber must not receive the in-flight notification, got %v", got)
	}

	if _, err := h.SetState("y"); err != nil {
		t.Fatalf("SetState(y) failed: %v", err)
	}
	got := late.got()
	if len(got) != 1 || got[0] != "y" {
		t.Fatalf("late subscriber should receive only y, got %v", got)
	}
}

func TestSubscriberRemovedMidPassIsSkipped(t *testing.T) {
	h := newTestHub(t)

	victim := &recorder{}
	h.Subscribe("s1", func(Notification) error {
		if !h.Unsubscribe("victim") {
			t.Error("re-entrant unsubscribe should report presence")
		}
		return nil
	})
	h.Subscribe("victim", victim.handler())

	if _, err := h.SetState("x"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if got := victim.got(); len(got) != 0 {
		t.Fatalf("removed subscriber must not be invoked, got %v", got)
	}
}

func TestFailingSubscriberIsIsolated(t *testing.T) {
	h := newTestHub(t)

	after := &recorder{}
	h.Subscribe("bad", func(Notification) error {
		return fmt.Errorf("sink unavailable")
	})
	h.Subscribe("panics", func(Notification) error {
		panic("boom")
	})
	h.Subscribe("good", after.handler())

	errs, err := h.SetState("x")
	if err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 delivery errors, got %d: %v", len(errs), errs)
	}
	if errs[0].SubscriberID != "bad" || errs[1].SubscriberID != "panics" {
		t.Fatalf("unexpected error attribution: %v", errs)
	}
	if got := after.got(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("subscriber after the failures should still be delivered, got %v", got)
	}
}

func TestSubscribeUnsubscribeScenario(t *testing.T) {
	h := newTestHub(t)

	a := &recorder{}
	b := &recorder{}
	h.Subscribe("A", a.handler())
	h.Subscribe("B", b.handler())

	if _, err := h.SetState("v1"); err != nil {
		t.Fatalf("SetState(v1) failed: %v", err)
	}
	if got := a.got(); len(got) != 1 || got[0] != "v1" {
		t.Fatalf("A should have received v1, got %v", got)
	}
	if got := b.got(); len(got) != 1 || got[0] != "v1" {
		t.Fatalf("B should have received v1, got %v", got)
	}

	if !h.Unsubscribe("A") {
		t.Fatal("unsubscribe A should report presence")
	}
	if h.Unsubscribe("A") {
		t.Fatal("second unsubscribe A should report absence")
	}

	if _, err := h.SetState("v2"); err != nil {
		t.Fatalf("SetState(v2) failed: %v", err)
	}
	if got := a.got(); len(got) != 1 {
		t.Fatalf("A should not have received v2, got %v", got)
	}
	if got := b.got(); len(got) != 2 || got[1] != "v2" {
		t.Fatalf("B should have received v2, got %v", got)
	}
	if h.State() != "v2" {
		t.Fatalf("State() = %v, want v2", h.State())
	}
}

func TestInitialState(t *testing.T) {
	h := newTestHub(t)
	if h.State() != "initial" {
		t.Fatalf("State() = %v, want initial", h.State())
	}
	if h.Seq() != 0 {
		t.Fatalf("Seq() = %d, want 0", h.Seq())
	}
}

func TestReentrantSetStateRejected(t *testing.T) {
	h := newTestHub(t)

	result := make(chan error, 1)
	h.Subscribe("reentrant", func(Notification) error {
		_, err := h.SetState("nested")
		result <- err
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := h.SetState("outer"); err != nil {
			t.Errorf("outer SetState failed: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetState deadlocked on re-entrant call")
	}

	if err := <-result; err != ErrReentrantDelivery {
		t.Fatalf("nested SetState returned %v, want ErrReentrantDelivery", err)
	}
	// The outer pass still wins the state cell.
	if h.State() != "outer" {
		t.Fatalf("State() = %v, want outer", h.State())
	}
}

func TestStateReadDoesNotBlockOnFanout(t *testing.T) {
	h := newTestHub(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.Subscribe("slow", func(Notification) error {
		close(entered)
		<-release
		return nil
	})

	go func() {
		if _, err := h.SetState("x"); err != nil {
			t.Errorf("SetState failed: %v", err)
		}
	}()

	<-entered
	readDone := make(chan interface{}, 1)
	go func() { readDone <- h.State() }()

	select {
	case v := <-readDone:
		if v != "x" {
			t.Fatalf("State() = %v during fan-out, want x", v)
		}
	case <-time.After(time.Second):
		t.Fatal("State() blocked on in-flight fan-out")
	}
	close(release)
}

func TestWithTimeout(t *testing.T) {
	blocked := make(chan struct{})
	defer close(blocked)

	slow := WithTimeout(func(Notification) error {
		<-blocked
		return nil
	}, 20*time.Millisecond)
	if err := slow(Notification{}); err == nil {
		t.Fatal("expected timeout error")
	}

	fast := WithTimeout(func(Notification) error { return nil }, time.Second)
	if err := fast(Notification{}); err != nil {
		t.Fatalf("fast handler should pass through, got %v", err)
	}
}

func TestRecentHistory(t *testing.T) {
	h, err := New(Config{HistorySize: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 1; i <= 6; i++ {
		if _, err := h.SetState(fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}
	}

	recent := h.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
	for i, wantSeq := range []uint64{6, 5, 4} {
		if recent[i].Seq != wantSeq {
			t.Fatalf("recent[%d].Seq = %d, want %d", i, recent[i].Seq, wantSeq)
		}
	}

	noHistory, err := New(Config{HistorySize: -1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := noHistory.SetState("x"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if got := noHistory.Recent(1); got != nil {
		t.Fatalf("disabled history should return nil, got %v", got)
	}
}

func TestAttach(t *testing.T) {
	h := newTestHub(t)

	s := &testSubscriber{id: "s"}
	if !h.Attach(s) {
		t.Fatal("Attach should succeed")
	}
	if h.Attach(s) {
		t.Fatal("second Attach with same ID should fail")
	}

	if _, err := h.SetState("x"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if s.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", s.count())
	}
}

type testSubscriber struct {
	id string
	mu sync.Mutex
	n  int
}

func (s *testSubscriber) ID() string { return s.id }

func (s *testSubscriber) Notify(Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return nil
}

func (s *testSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
