package surfaces

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ocakbasi/order-sync/internal/config"
	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/notify"
	"github.com/ocakbasi/order-sync/internal/repository"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// fakeStore is an in-memory OrderStore with the same transition rules
// as the real one
type fakeStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeStore(orders ...*models.Order) *fakeStore {
	s := &fakeStore{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeStore) put(o *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// putAll inserts orders atomically with respect to ListOrders, so a poll
// sees either none or all of them
func (s *fakeStore) putAll(orders ...*models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		s.orders[o.ID] = o
	}
}

func (s *fakeStore) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Order

	for _, o := range s.orders {
		if filter.IDEquals != "" && o.ID != filter.IDEquals {
			continue
		}

		if len(filter.StatusIn) > 0 {
			match := false
			for _, st := range filter.StatusIn {
				if o.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}

		copied := *o
		out = append(out, &copied)
	}

	return out, nil
}

func (s *fakeStore) ApplyTransition(ctx context.Context, orderID string, requested models.Status, changedBy string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]

	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}

	next, changed, err := models.NextStatus(o.Status, requested)

	if err != nil {
		return nil, err
	}

	if changed {
		o.Status = next
	}

	copied := *o
	return &copied, nil
}

func (s *fakeStore) PrintTicket(ctx context.Context, orderID string) error {
	return nil
}

func (s *fakeStore) status(orderID string) models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Status
}

// countingSink counts deliveries and notification totals
type countingSink struct {
	mu         sync.Mutex
	deliveries int
	orders     int
}

func (c *countingSink) Deliver(ctx context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries++
	c.orders += n.Count
	return nil
}

func (c *countingSink) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveries, c.orders
}

func testDisplayConfig() config.DisplayConfig {
	return config.DisplayConfig{
		KitchenPollInterval:   20 * time.Millisecond,
		SalonPollInterval:     20 * time.Millisecond,
		TrackPollInterval:     20 * time.Millisecond,
		UrgentAfter:           10 * time.Minute,
		CriticalAfter:         20 * time.Minute,
		DegradedAfterFailures: 3,
	}
}

func testOrder(id string, source models.Source, status models.Status) *models.Order {
	return &models.Order{
		ID:          id,
		Source:      source,
		Status:      status,
		Seq:         1,
		BusinessDay: "2025-06-01",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func TestKitchenAnnouncesOnlyNewPendingOrders(t *testing.T) {
	store := newFakeStore(testOrder("ord-old", models.SourceTable, models.StatusPending))

	audible := &countingSink{}
	native := &countingSink{}
	dispatcher := notify.NewDispatcher(audible, &countingSink{}, native, notify.GrantedPermission{}, logger.NewNop())

	kitchen := NewKitchenSurface(store, dispatcher, testDisplayConfig(), logger.NewNop())
	kitchen.Start(testDisplayConfig())
	defer kitchen.Stop()

	waitFor(t, "initial snapshot", func() bool { return len(kitchen.Rows()) == 1 })

	// The order that was already on the board must not have announced
	if d, _ := audible.counts(); d != 0 {
		t.Fatalf("startup announced %d times", d)
	}

	store.put(testOrder("ord-new", models.SourceKiosk, models.StatusPending))

	waitFor(t, "new order announcement", func() bool {
		d, _ := audible.counts()
		return d == 1
	})

	if d, _ := native.counts(); d != 1 {
		t.Errorf("native announced %d times, want 1", d)
	}

	// No re-announcement while the order stays pending
	time.Sleep(100 * time.Millisecond)

	if d, _ := audible.counts(); d != 1 {
		t.Errorf("announced %d times for one new order", d)
	}
}

func TestKitchenBatchAnnouncesOnce(t *testing.T) {
	store := newFakeStore()

	audible := &countingSink{}
	dispatcher := notify.NewDispatcher(audible, &countingSink{}, &countingSink{}, notify.GrantedPermission{}, logger.NewNop())

	kitchen := NewKitchenSurface(store, dispatcher, testDisplayConfig(), logger.NewNop())
	kitchen.Start(testDisplayConfig())
	defer kitchen.Stop()

	// Let the first tick prime an empty board
	time.Sleep(60 * time.Millisecond)

	// Three orders land between two ticks; one summarized alert
	store.putAll(
		testOrder("a", models.SourceKiosk, models.StatusPending),
		testOrder("b", models.SourceOnline, models.StatusPending),
		testOrder("c", models.SourceTable, models.StatusPending),
	)

	waitFor(t, "batch announcement", func() bool {
		_, orders := audible.counts()
		return orders == 3
	})

	if d, _ := audible.counts(); d != 1 {
		t.Errorf("batch of 3 produced %d dispatches, want 1", d)
	}
}

func TestKitchenActionsDriveStoreTransitions(t *testing.T) {
	order := testOrder("ord-1", models.SourceTable, models.StatusPending)
	order.TableName = func() *string { s := "5"; return &s }()
	store := newFakeStore(order)

	dispatcher := notify.NewDispatcher(&countingSink{}, &countingSink{}, &countingSink{}, notify.GrantedPermission{}, logger.NewNop())
	kitchen := NewKitchenSurface(store, dispatcher, testDisplayConfig(), logger.NewNop())

	ctx := context.Background()

	if err := kitchen.StartPreparing(ctx, "ord-1", "cook-a"); err != nil {
		t.Fatalf("StartPreparing failed: %v", err)
	}

	if got := store.status("ord-1"); got != models.StatusPreparing {
		t.Errorf("status = %s, want preparing", got)
	}

	// Skipping ahead to served is rejected and changes nothing
	if err := kitchen.MarkServed(ctx, "ord-1", "cook-a"); err == nil {
		t.Error("preparing -> served should be rejected")
	}

	if got := store.status("ord-1"); got != models.StatusPreparing {
		t.Errorf("rejected transition moved status to %s", got)
	}

	if err := kitchen.MarkReady(ctx, "ord-1", "cook-a", false); err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}

	if err := kitchen.MarkServed(ctx, "ord-1", "runner-b"); err != nil {
		t.Fatalf("MarkServed failed: %v", err)
	}

	if got := store.status("ord-1"); got != models.StatusServed {
		t.Errorf("status = %s, want served", got)
	}
}

func TestSalonAnnouncesReadyAndSplitsBoard(t *testing.T) {
	order := testOrder("ord-1", models.SourcePackage, models.StatusPreparing)
	store := newFakeStore(order, testOrder("ord-2", models.SourceOnline, models.StatusPreparing))

	audible := &countingSink{}
	dispatcher := notify.NewDispatcher(audible, &countingSink{}, &countingSink{}, notify.GrantedPermission{}, logger.NewNop())

	salon := NewSalonSurface(store, dispatcher, testDisplayConfig(), logger.NewNop())
	salon.Start(testDisplayConfig())
	defer salon.Stop()

	waitFor(t, "initial board", func() bool {
		preparing, _ := salon.Board()
		return len(preparing) == 2
	})

	if _, err := store.ApplyTransition(context.Background(), "ord-1", models.StatusReady, "cook-a"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	waitFor(t, "ready announcement", func() bool {
		d, _ := audible.counts()
		return d == 1
	})

	preparing, ready := salon.Board()

	if len(preparing) != 1 || len(ready) != 1 {
		t.Errorf("board split = %d preparing, %d ready; want 1/1", len(preparing), len(ready))
	}

	if len(ready) == 1 && ready[0].Code != "P1" {
		t.Errorf("ready row code = %q, want P1", ready[0].Code)
	}
}

func TestTrackFollowsSingleOrder(t *testing.T) {
	order := testOrder("ord-42", models.SourceKiosk, models.StatusPreparing)
	store := newFakeStore(order, testOrder("ord-other", models.SourceKiosk, models.StatusReady))

	native := &countingSink{}
	dispatcher := notify.NewDispatcher(&countingSink{}, &countingSink{}, native, notify.GrantedPermission{}, logger.NewNop())

	track := NewTrackSurface(store, dispatcher, "ord-42", testDisplayConfig(), logger.NewNop())
	track.Start(testDisplayConfig())
	defer track.Stop()

	waitFor(t, "tracked order", func() bool {
		_, ok := track.Current()
		return ok
	})

	row, _ := track.Current()

	if row.Order.ID != "ord-42" {
		t.Fatalf("tracking %s, want ord-42", row.Order.ID)
	}

	if row.Code != "K1" {
		t.Errorf("track code = %q, want K1", row.Code)
	}

	// Other orders becoming ready must not notify this customer
	time.Sleep(60 * time.Millisecond)

	if d, _ := native.counts(); d != 0 {
		t.Fatalf("announced %d times before tracked order was ready", d)
	}

	if _, err := store.ApplyTransition(context.Background(), "ord-42", models.StatusReady, "cook-a"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	waitFor(t, "ready announcement", func() bool {
		d, _ := native.counts()
		return d == 1
	})

	row, _ = track.Current()

	if row.Order.Status != models.StatusReady {
		t.Errorf("tracked status = %s, want ready", row.Order.Status)
	}
}
