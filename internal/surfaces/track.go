package surfaces

import (
	"context"
	"sync"
	"time"

	"github.com/ocakbasi/order-sync/internal/config"
	"github.com/ocakbasi/order-sync/internal/displaycode"
	"github.com/ocakbasi/order-sync/internal/escalation"
	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/notify"
	"github.com/ocakbasi/order-sync/internal/repository"
	ordersync "github.com/ocakbasi/order-sync/internal/sync"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// TrackSurface is the customer-facing page that follows a single order.
// Read-only; it announces once when the order becomes ready.
type TrackSurface struct {
	store      OrderStore
	dispatcher *notify.Dispatcher
	thresholds escalation.Thresholds
	orderID    string
	logger     logger.Logger

	unsubscribe ordersync.UnsubscribeFunc

	mu       sync.Mutex
	order    *models.Order
	degraded bool
}

// NewTrackSurface creates a TrackSurface for one order
func NewTrackSurface(store OrderStore, dispatcher *notify.Dispatcher, orderID string, cfg config.DisplayConfig, logger logger.Logger) *TrackSurface {
	return &TrackSurface{
		store:      store,
		dispatcher: dispatcher,
		thresholds: escalation.Thresholds{Urgent: cfg.UrgentAfter, Critical: cfg.CriticalAfter},
		orderID:    orderID,
		logger:     logger,
	}
}

// Start begins polling the store for the tracked order
func (t *TrackSurface) Start(cfg config.DisplayConfig) {
	filter := repository.OrderFilter{IDEquals: t.orderID}

	fetch := func(ctx context.Context) ([]*models.Order, error) {
		return t.store.ListOrders(ctx, filter)
	}

	t.unsubscribe = ordersync.Subscribe(fetch, ordersync.Config{
		Interval:      cfg.TrackPollInterval,
		Trigger:       models.StatusReady,
		DegradedAfter: cfg.DegradedAfterFailures,
	}, ordersync.Callbacks{
		OnSnapshot: t.applySnapshot,
		OnTrigger:  t.announceReady,
		OnDegraded: t.setDegraded,
	}, t.logger)
}

// Stop tears down the polling loop
func (t *TrackSurface) Stop() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

func (t *TrackSurface) applySnapshot(orders []*models.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(orders) > 0 {
		t.order = orders[0]
	}
}

func (t *TrackSurface) announceReady(newly []*models.Order) {
	n := notify.Summarize(newly, "Your order is ready", "Your orders are ready")

	t.dispatcher.Notify(context.Background(), notify.Native, n)
}

func (t *TrackSurface) setDegraded(degraded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.degraded = degraded
}

// Degraded reports whether consecutive polls have been failing
func (t *TrackSurface) Degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.degraded
}

// Current returns the latest observed state of the tracked order, or
// false if no poll has found it yet
func (t *TrackSurface) Current() (Row, bool) {
	t.mu.Lock()
	order := t.order
	t.mu.Unlock()

	if order == nil {
		return Row{}, false
	}

	return Row{
		Order: order,
		Code:  displaycode.Resolve(order),
		Color: displaycode.ChannelColor(order.Source),
		Tier:  t.thresholds.Tier(order.CreatedAt, time.Now().UTC()),
	}, true
}
