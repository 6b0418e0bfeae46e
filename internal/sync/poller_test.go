package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// scriptedFetch replays a fixed sequence of fetch results, holding the
// last one once the script runs out.
type scriptedFetch struct {
	mu      stdsync.Mutex
	results []func() ([]*models.Order, error)
	calls   int
}

func (f *scriptedFetch) fetch(ctx context.Context) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++

	return f.results[i]()
}

func ok(orders ...*models.Order) func() ([]*models.Order, error) {
	return func() ([]*models.Order, error) { return orders, nil }
}

func fail() func() ([]*models.Order, error) {
	return func() ([]*models.Order, error) { return nil, errors.New("store unreachable") }
}

func order(id string, status models.Status) *models.Order {
	return &models.Order{ID: id, Status: status}
}

func waitTrigger(t *testing.T, ch <-chan []*models.Order) []*models.Order {
	t.Helper()

	select {
	case newly := <-ch:
		return newly
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trigger")
		return nil
	}
}

func TestPollerFirstFetchOnlyPrimes(t *testing.T) {
	script := &scriptedFetch{results: []func() ([]*models.Order, error){
		ok(order("a", models.StatusPending), order("b", models.StatusPending)),
	}}

	triggers := make(chan []*models.Order, 8)
	snapshots := make(chan int, 8)

	p := NewPoller(script.fetch, Config{
		Interval: 20 * time.Millisecond,
		Trigger:  models.StatusPending,
	}, Callbacks{
		OnSnapshot: func(orders []*models.Order) { snapshots <- len(orders) },
		OnTrigger:  func(newly []*models.Order) { triggers <- newly },
	}, logger.NewNop())

	p.Start()
	defer p.Stop()

	// The board fills from the first snapshot
	select {
	case n := <-snapshots:
		if n != 2 {
			t.Errorf("first snapshot had %d orders, want 2", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first snapshot")
	}

	// Orders already present at startup must not announce
	select {
	case newly := <-triggers:
		t.Errorf("first fetch fired a trigger for %d orders", len(newly))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollerTriggersExactlyOncePerTransition(t *testing.T) {
	script := &scriptedFetch{results: []func() ([]*models.Order, error){
		ok(order("a", models.StatusPreparing)),
		ok(order("a", models.StatusPreparing), order("b", models.StatusPending)),
		ok(order("a", models.StatusPreparing), order("b", models.StatusPending)),
	}}

	triggers := make(chan []*models.Order, 8)

	p := NewPoller(script.fetch, Config{
		Interval: 20 * time.Millisecond,
		Trigger:  models.StatusPending,
	}, Callbacks{
		OnTrigger: func(newly []*models.Order) { triggers <- newly },
	}, logger.NewNop())

	p.Start()
	defer p.Stop()

	newly := waitTrigger(t, triggers)

	if len(newly) != 1 || newly[0].ID != "b" {
		t.Fatalf("trigger = %v, want just order b", newly)
	}

	// The same order still pending must not re-announce
	select {
	case again := <-triggers:
		t.Errorf("re-fired trigger for %v", again)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestPollerReEntryTriggersAgain(t *testing.T) {
	// a leaves ready and comes back: two distinct transitions
	script := &scriptedFetch{results: []func() ([]*models.Order, error){
		ok(order("a", models.StatusPreparing)),
		ok(order("a", models.StatusReady)),
		ok(order("a", models.StatusPreparing)),
		ok(order("a", models.StatusReady)),
	}}

	triggers := make(chan []*models.Order, 8)

	p := NewPoller(script.fetch, Config{
		Interval: 20 * time.Millisecond,
		Trigger:  models.StatusReady,
	}, Callbacks{
		OnTrigger: func(newly []*models.Order) { triggers <- newly },
	}, logger.NewNop())

	p.Start()
	defer p.Stop()

	first := waitTrigger(t, triggers)
	second := waitTrigger(t, triggers)

	if first[0].ID != "a" || second[0].ID != "a" {
		t.Errorf("triggers = %v, %v, want order a twice", first, second)
	}
}

func TestPollerFailedFetchKeepsSnapshot(t *testing.T) {
	// Prime with a pending order, fail twice, then recover with the same
	// set. Recovery must not re-announce the order.
	script := &scriptedFetch{results: []func() ([]*models.Order, error){
		ok(order("a", models.StatusPending)),
		fail(),
		fail(),
		ok(order("a", models.StatusPending)),
	}}

	triggers := make(chan []*models.Order, 8)
	degraded := make(chan bool, 8)

	p := NewPoller(script.fetch, Config{
		Interval:      20 * time.Millisecond,
		Trigger:       models.StatusPending,
		DegradedAfter: 2,
	}, Callbacks{
		OnTrigger:  func(newly []*models.Order) { triggers <- newly },
		OnDegraded: func(d bool) { degraded <- d },
	}, logger.NewNop())

	p.Start()
	defer p.Stop()

	select {
	case d := <-degraded:
		if !d {
			t.Error("first degraded signal was false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for degraded signal")
	}

	select {
	case d := <-degraded:
		if d {
			t.Error("recovery signal was true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recovery signal")
	}

	select {
	case newly := <-triggers:
		t.Errorf("recovery re-fired trigger for %v", newly)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestPollerSingleFailureDoesNotDegrade(t *testing.T) {
	script := &scriptedFetch{results: []func() ([]*models.Order, error){
		ok(),
		fail(),
		ok(),
	}}

	degraded := make(chan bool, 8)

	p := NewPoller(script.fetch, Config{
		Interval:      20 * time.Millisecond,
		Trigger:       models.StatusPending,
		DegradedAfter: 3,
	}, Callbacks{
		OnDegraded: func(d bool) { degraded <- d },
	}, logger.NewNop())

	p.Start()
	defer p.Stop()

	select {
	case <-degraded:
		t.Error("degraded flipped after a single failure")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPollerStopSilencesCallbacks(t *testing.T) {
	var mu stdsync.Mutex
	stopped := false
	lateCallback := false

	script := &scriptedFetch{results: []func() ([]*models.Order, error){
		ok(order("a", models.StatusPending)),
	}}

	p := NewPoller(script.fetch, Config{
		Interval: 10 * time.Millisecond,
		Trigger:  models.StatusPending,
	}, Callbacks{
		OnSnapshot: func(orders []*models.Order) {
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				lateCallback = true
			}
		},
	}, logger.NewNop())

	p.Start()
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	mu.Lock()
	stopped = true
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if lateCallback {
		t.Error("callback fired after Stop returned")
	}

	// Stop is idempotent
	p.Stop()
}
