package surfaces

import (
	"context"
	"sync"
	"time"

	"github.com/ocakbasi/order-sync/internal/config"
	"github.com/ocakbasi/order-sync/internal/escalation"
	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/notify"
	"github.com/ocakbasi/order-sync/internal/repository"
	ordersync "github.com/ocakbasi/order-sync/internal/sync"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// KitchenSurface is the action screen the kitchen works from. It shows
// pending and preparing orders, announces newly arrived ones, and is the
// only surface that writes: operators move orders through the lifecycle
// from here.
type KitchenSurface struct {
	store      OrderStore
	dispatcher *notify.Dispatcher
	thresholds escalation.Thresholds
	logger     logger.Logger

	unsubscribe ordersync.UnsubscribeFunc

	mu       sync.Mutex
	snapshot []*models.Order
	degraded bool
}

// NewKitchenSurface creates a KitchenSurface
func NewKitchenSurface(store OrderStore, dispatcher *notify.Dispatcher, cfg config.DisplayConfig, logger logger.Logger) *KitchenSurface {
	return &KitchenSurface{
		store:      store,
		dispatcher: dispatcher,
		thresholds: escalation.Thresholds{Urgent: cfg.UrgentAfter, Critical: cfg.CriticalAfter},
		logger:     logger,
	}
}

// Start begins polling the store for open kitchen work
func (k *KitchenSurface) Start(cfg config.DisplayConfig) {
	filter := repository.OrderFilter{
		StatusIn: []models.Status{models.StatusPending, models.StatusPreparing},
	}

	fetch := func(ctx context.Context) ([]*models.Order, error) {
		return k.store.ListOrders(ctx, filter)
	}

	k.unsubscribe = ordersync.Subscribe(fetch, ordersync.Config{
		Interval:      cfg.KitchenPollInterval,
		Trigger:       models.StatusPending,
		DegradedAfter: cfg.DegradedAfterFailures,
	}, ordersync.Callbacks{
		OnSnapshot: k.applySnapshot,
		OnTrigger:  k.announceNewOrders,
		OnDegraded: k.setDegraded,
	}, k.logger)
}

// Stop tears down the polling loop
func (k *KitchenSurface) Stop() {
	if k.unsubscribe != nil {
		k.unsubscribe()
		k.unsubscribe = nil
	}
}

func (k *KitchenSurface) applySnapshot(orders []*models.Order) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.snapshot = orders
}

func (k *KitchenSurface) announceNewOrders(newly []*models.Order) {
	ctx := context.Background()
	n := notify.Summarize(newly, "New order", "New orders")

	// One audible and one native dispatch per batch, never per order
	k.dispatcher.Notify(ctx, notify.Audible, n)
	k.dispatcher.Notify(ctx, notify.Native, n)
}

func (k *KitchenSurface) setDegraded(degraded bool) {
	k.mu.Lock()
	k.degraded = degraded
	k.mu.Unlock()

	if degraded {
		k.dispatcher.Notify(context.Background(), notify.Visual, notify.Notification{
			Title: "Connection degraded",
			Body:  "Orders may be stale; retrying",
		})
	}
}

// Degraded reports whether consecutive polls have been failing
func (k *KitchenSurface) Degraded() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.degraded
}

// Rows returns the current board, with escalation tiers computed from
// the wall clock at call time
func (k *KitchenSurface) Rows() []Row {
	k.mu.Lock()
	snapshot := k.snapshot
	k.mu.Unlock()

	return buildRows(snapshot, k.thresholds, time.Now().UTC())
}

// StartPreparing moves a pending order into preparation. A rejection is
// returned to the operator; the local snapshot is never patched, the
// next poll tick reflects whatever the store decided.
func (k *KitchenSurface) StartPreparing(ctx context.Context, orderID, operator string) error {
	_, err := k.store.ApplyTransition(ctx, orderID, models.StatusPreparing, operator)
	return err
}

// MarkReady marks a preparing order as ready. When print is set, a
// ticket print is fired alongside the transition; a print failure is
// logged and reported as a warning but cannot roll the status back.
func (k *KitchenSurface) MarkReady(ctx context.Context, orderID, operator string, print bool) error {
	_, err := k.store.ApplyTransition(ctx, orderID, models.StatusReady, operator)

	if err != nil {
		return err
	}

	if print {
		go func() {
			printCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if printErr := k.store.PrintTicket(printCtx, orderID); printErr != nil {
				k.logger.Warn("Ticket print failed", "orderID", orderID, "error", printErr)
				k.dispatcher.Notify(context.Background(), notify.Visual, notify.Notification{
					Title: "Print failed",
					Body:  "Ticket for " + orderID + " did not print; retry from the order card",
				})
			}
		}()
	}

	return nil
}

// MarkServed completes a ready order
func (k *KitchenSurface) MarkServed(ctx context.Context, orderID, operator string) error {
	_, err := k.store.ApplyTransition(ctx, orderID, models.StatusServed, operator)
	return err
}

// Cancel cancels an open order
func (k *KitchenSurface) Cancel(ctx context.Context, orderID, operator string) error {
	_, err := k.store.ApplyTransition(ctx, orderID, models.StatusCancelled, operator)
	return err
}

// RetryPrint re-fires a ticket print on operator request
func (k *KitchenSurface) RetryPrint(ctx context.Context, orderID string) error {
	return k.store.PrintTicket(ctx, orderID)
}
