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

// SalonSurface is the read-only "ready for pickup" board in the dining
// room. It shows orders in preparation and announces the ones that just
// became ready. It never writes.
type SalonSurface struct {
	store      OrderStore
	dispatcher *notify.Dispatcher
	thresholds escalation.Thresholds
	logger     logger.Logger

	unsubscribe ordersync.UnsubscribeFunc

	mu       sync.Mutex
	snapshot []*models.Order
	degraded bool
}

// NewSalonSurface creates a SalonSurface
func NewSalonSurface(store OrderStore, dispatcher *notify.Dispatcher, cfg config.DisplayConfig, logger logger.Logger) *SalonSurface {
	return &SalonSurface{
		store:      store,
		dispatcher: dispatcher,
		thresholds: escalation.Thresholds{Urgent: cfg.UrgentAfter, Critical: cfg.CriticalAfter},
		logger:     logger,
	}
}

// Start begins polling the store for preparing and ready orders
func (s *SalonSurface) Start(cfg config.DisplayConfig) {
	filter := repository.OrderFilter{
		StatusIn: []models.Status{models.StatusPreparing, models.StatusReady},
	}

	fetch := func(ctx context.Context) ([]*models.Order, error) {
		return s.store.ListOrders(ctx, filter)
	}

	s.unsubscribe = ordersync.Subscribe(fetch, ordersync.Config{
		Interval:      cfg.SalonPollInterval,
		Trigger:       models.StatusReady,
		DegradedAfter: cfg.DegradedAfterFailures,
	}, ordersync.Callbacks{
		OnSnapshot: s.applySnapshot,
		OnTrigger:  s.announceReady,
		OnDegraded: s.setDegraded,
	}, s.logger)
}

// Stop tears down the polling loop
func (s *SalonSurface) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *SalonSurface) applySnapshot(orders []*models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = orders
}

func (s *SalonSurface) announceReady(newly []*models.Order) {
	ctx := context.Background()
	n := notify.Summarize(newly, "Order ready", "Orders ready")

	s.dispatcher.Notify(ctx, notify.Audible, n)
	s.dispatcher.Notify(ctx, notify.Native, n)
}

func (s *SalonSurface) setDegraded(degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = degraded
}

// Degraded reports whether consecutive polls have been failing
func (s *SalonSurface) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Board returns the current rows split into preparing and ready columns
func (s *SalonSurface) Board() (preparing, ready []Row) {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()

	rows := buildRows(snapshot, s.thresholds, time.Now().UTC())

	for _, row := range rows {
		switch row.Order.Status {
		case models.StatusReady:
			ready = append(ready, row)
		default:
			preparing = append(preparing, row)
		}
	}

	return preparing, ready
}
