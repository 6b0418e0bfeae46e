package sync

import (
	"context"
	"sync"
	"time"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// FetchFunc fetches the current full set of orders a surface cares
// about. The filter is baked into the closure; the poller does not know
// or care what it is.
type FetchFunc func(ctx context.Context) ([]*models.Order, error)

// Callbacks receive the results of each poll tick. OnSnapshot gets every
// successful tick's full result; OnTrigger gets only the orders that
// newly entered the trigger status since the previous tick, at most once
// per order per status; OnDegraded flips when consecutive fetch failures
// cross the configured threshold and flips back on the next success.
// Any callback may be nil.
type Callbacks struct {
	OnSnapshot func(orders []*models.Order)
	OnTrigger  func(newly []*models.Order)
	OnDegraded func(degraded bool)
}

// Config tunes a Poller
type Config struct {
	Interval      time.Duration
	Trigger       models.Status
	DegradedAfter int // consecutive failed ticks before OnDegraded(true)
}

// Poller periodically re-fetches a filtered projection of orders, diffs
// it against the previous snapshot by (id, status), and fires trigger
// callbacks exactly once per newly observed transition. Ticks are
// serialized: a new tick never starts before the previous one resolves,
// so in-flight requests cannot pile up behind a slow store.
type Poller struct {
	fetch     FetchFunc
	config    Config
	callbacks Callbacks
	logger    logger.Logger

	// snapshot holds (id -> status) as of the last successful tick. A
	// failed fetch leaves it untouched, so recovery cannot re-fire
	// triggers for orders that were already observed.
	snapshot map[string]models.Status
	primed   bool

	consecutiveFailures int
	degraded            bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewPoller creates a new Poller
func NewPoller(fetch FetchFunc, config Config, callbacks Callbacks, logger logger.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		fetch:     fetch,
		config:    config,
		callbacks: callbacks,
		logger:    logger,
		snapshot:  make(map[string]models.Status),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the polling loop
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.run()
	}()

	p.logger.Info("Poller started",
		"interval", p.config.Interval,
		"trigger", p.config.Trigger)
}

// Stop stops the polling loop and waits for any in-flight tick to
// finish. After Stop returns no callback will fire again; a fetch that
// resolves during teardown is discarded, not applied.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Poller stopped")
}

// run executes ticks until the poller is stopped. The first tick fires
// immediately so a surface does not open on an empty screen.
func (p *Poller) run() {
	p.tick()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick performs one fetch-diff-apply cycle
func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.Interval)
	defer cancel()

	orders, err := p.fetch(ctx)

	// A result that arrives after teardown is a no-op, not an error
	if p.ctx.Err() != nil {
		return
	}

	if err != nil {
		p.consecutiveFailures++
		p.logger.Warn("Poll fetch failed, keeping previous snapshot",
			"error", err,
			"consecutiveFailures", p.consecutiveFailures)

		if !p.degraded && p.config.DegradedAfter > 0 && p.consecutiveFailures >= p.config.DegradedAfter {
			p.degraded = true
			if p.callbacks.OnDegraded != nil {
				p.callbacks.OnDegraded(true)
			}
		}
		return
	}

	if p.consecutiveFailures > 0 {
		p.consecutiveFailures = 0
	}

	if p.degraded {
		p.degraded = false
		if p.callbacks.OnDegraded != nil {
			p.callbacks.OnDegraded(false)
		}
	}

	newly := p.apply(orders)

	if p.callbacks.OnSnapshot != nil {
		p.callbacks.OnSnapshot(orders)
	}

	if len(newly) > 0 && p.callbacks.OnTrigger != nil {
		p.callbacks.OnTrigger(newly)
	}
}

// apply diffs the fetched orders against the previous snapshot and
// replaces it. Returns the orders that newly entered the trigger status.
// The very first successful fetch only primes the snapshot: a display
// that restarts must not re-announce everything already on the board.
func (p *Poller) apply(orders []*models.Order) []*models.Order {
	next := make(map[string]models.Status, len(orders))

	var newly []*models.Order

	for _, order := range orders {
		next[order.ID] = order.Status

		if !p.primed || order.Status != p.config.Trigger {
			continue
		}

		prev, seen := p.snapshot[order.ID]

		if !seen || prev != p.config.Trigger {
			newly = append(newly, order)
		}
	}

	p.snapshot = next
	p.primed = true

	return newly
}
