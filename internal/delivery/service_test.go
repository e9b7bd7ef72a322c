package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

// scriptedNotifier returns the queued errors in order, then succeeds.
type scriptedNotifier struct {
	mu    sync.Mutex
	fails []error
	sends []time.Time
}

func (n *scriptedNotifier) Send(ctx context.Context, ownerID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, time.Now())
	if len(n.fails) > 0 {
		err := n.fails[0]
		n.fails = n.fails[1:]
		return err
	}
	return nil
}

func (n *scriptedNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

func newTestService(t *testing.T, n Notifier, backoff time.Duration) *Service {
	t.Helper()
	s := New(Config{RetryBackoff: backoff}, n, logx.Nop(), nil)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestStartLoopIdempotent(t *testing.T) {
	t.Parallel()
	n := &scriptedNotifier{}
	s := newTestService(t, n, time.Second)

	r := storage.Reminder{ID: 1, OwnerID: 42, IntervalLabel: "1 час", MessageText: "stretch"}
	if err := s.StartLoop(r); err != nil {
		t.Fatalf("StartLoop: %v", err)
	}
	if err := s.StartLoop(r); err != nil {
		t.Fatalf("second StartLoop: %v", err)
	}

	loops := s.ActiveLoops()
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	if loops[0].Interval != time.Hour {
		t.Fatalf("interval = %v, want 1h", loops[0].Interval)
	}
}

func TestStartLoopRejectsUnknownLabel(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedNotifier{}, time.Second)
	err := s.StartLoop(storage.Reminder{ID: 1, OwnerID: 1, IntervalLabel: "never", MessageText: "x"})
	if err == nil {
		t.Fatal("expected error for unresolvable interval label")
	}
}

func TestCancelUnknownIDNoop(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedNotifier{}, time.Second)
	s.CancelLoop(12345) // must not panic or error
	if len(s.ActiveLoops()) != 0 {
		t.Fatal("expected no loops")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	t.Parallel()
	n := &scriptedNotifier{}
	s := newTestService(t, n, time.Second)

	r := storage.Reminder{ID: 3, OwnerID: 7, MessageText: "tick"}
	s.startLoop(r, 10*time.Millisecond)
	waitFor(t, 2*time.Second, func() bool { return n.sendCount() >= 1 })

	s.CancelLoop(3)
	if len(s.ActiveLoops()) != 0 {
		t.Fatal("loop still registered after cancel")
	}

	// No further sends once the cancel is observed.
	time.Sleep(30 * time.Millisecond)
	base := n.sendCount()
	time.Sleep(50 * time.Millisecond)
	if got := n.sendCount(); got > base {
		t.Fatalf("sends continued after cancel: %d -> %d", base, got)
	}
}

func TestTransientFailureRetriesWithoutSkipping(t *testing.T) {
	t.Parallel()
	netErr := Transient(errors.New("connection reset"))
	n := &scriptedNotifier{fails: []error{netErr, netErr, netErr}}
	s := newTestService(t, n, 5*time.Millisecond)

	r := storage.Reminder{ID: 4, OwnerID: 9, MessageText: "hydrate"}
	s.startLoop(r, 20*time.Millisecond)

	// Three transient failures then the successful delivery of the SAME
	// notification: four send attempts for the first interval tick.
	waitFor(t, 2*time.Second, func() bool { return n.sendCount() >= 4 })

	// The loop survives and keeps its normal cadence afterwards.
	if len(s.ActiveLoops()) != 1 {
		t.Fatalf("got %d loops, want 1", len(s.ActiveLoops()))
	}
	waitFor(t, 2*time.Second, func() bool { return n.sendCount() >= 5 })
}

func TestFatalFailureTerminatesLoop(t *testing.T) {
	t.Parallel()
	n := &scriptedNotifier{fails: []error{errors.New("bot was blocked by the user")}}
	s := newTestService(t, n, 5*time.Millisecond)

	r := storage.Reminder{ID: 5, OwnerID: 11, MessageText: "gone"}
	s.startLoop(r, 10*time.Millisecond)

	waitFor(t, 2*time.Second, func() bool { return len(s.ActiveLoops()) == 0 })

	// Terminated loop must not keep sending.
	base := n.sendCount()
	time.Sleep(50 * time.Millisecond)
	if got := n.sendCount(); got != base {
		t.Fatalf("sends after fatal failure: %d -> %d", base, got)
	}
}

func TestFatalLoopCanBeRestarted(t *testing.T) {
	t.Parallel()
	n := &scriptedNotifier{fails: []error{errors.New("forbidden")}}
	s := newTestService(t, n, 5*time.Millisecond)

	r := storage.Reminder{ID: 6, OwnerID: 12, MessageText: "retry me"}
	s.startLoop(r, 10*time.Millisecond)
	waitFor(t, 2*time.Second, func() bool { return len(s.ActiveLoops()) == 0 })

	// The handle was released, so the same id can be started again.
	s.startLoop(r, 10*time.Millisecond)
	if len(s.ActiveLoops()) != 1 {
		t.Fatalf("got %d loops, want 1 after restart", len(s.ActiveLoops()))
	}
}

func TestTransientMarker(t *testing.T) {
	t.Parallel()
	base := errors.New("timeout")
	if !IsTransient(Transient(base)) {
		t.Fatal("Transient(err) must be detected by IsTransient")
	}
	if IsTransient(base) {
		t.Fatal("plain error must not be transient")
	}
	if IsTransient(nil) {
		t.Fatal("nil must not be transient")
	}
	if !errors.Is(Transient(base), base) {
		t.Fatal("Transient must unwrap to the base error")
	}
}
