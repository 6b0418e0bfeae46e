package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// Kind classifies a notification channel
type Kind int

const (
	Audible Kind = iota // short alert sound, subject to the mute toggle
	Visual              // on-screen banner, never suppressed
	Native              // OS-level notification, needs permission
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Audible:
		return "audible"
	case Visual:
		return "visual"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// Notification is one alert to deliver
type Notification struct {
	Title string
	Body  string
	Count int // number of orders summarized, 0 or 1 for a single event
}

// Sink delivers notifications on one channel. Implementations wrap a
// sound player, a screen banner, or the OS notification facility.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// PermissionRequester asks the platform for native notification
// permission. Asked at most once per dispatcher lifetime.
type PermissionRequester interface {
	Request(ctx context.Context) (granted bool, err error)
}

type permissionState int

const (
	permissionUnknown permissionState = iota
	permissionGranted
	permissionDenied
)

// Dispatcher fans a notification out to the right sink. Mute suppresses
// only the audible channel. A denied native permission is a permanent,
// silent degrade to visual; it is never an error and never blocks.
type Dispatcher struct {
	audible Sink
	visual  Sink
	native  Sink
	perm    PermissionRequester
	logger  logger.Logger

	mu        sync.Mutex
	muted     bool
	permState permissionState
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(audible, visual, native Sink, perm PermissionRequester, logger logger.Logger) *Dispatcher {
	return &Dispatcher{
		audible: audible,
		visual:  visual,
		native:  native,
		perm:    perm,
		logger:  logger,
	}
}

// SetMuted toggles the audible channel
func (d *Dispatcher) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
}

// Muted reports the audible mute state
func (d *Dispatcher) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Notify delivers one notification on the given channel. Sink failures
// are logged and swallowed; an alert must never take a surface down.
func (d *Dispatcher) Notify(ctx context.Context, kind Kind, n Notification) {
	switch kind {
	case Audible:
		if d.Muted() {
			return
		}
		d.deliver(ctx, d.audible, kind, n)
	case Visual:
		d.deliver(ctx, d.visual, kind, n)
	case Native:
		if d.ensurePermission(ctx) {
			d.deliver(ctx, d.native, kind, n)
			return
		}
		// Degrade to visual, permanently and silently
		d.deliver(ctx, d.visual, Visual, n)
	}
}

// ensurePermission resolves the native permission state, asking the
// platform at most once
func (d *Dispatcher) ensurePermission(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.permState {
	case permissionGranted:
		return true
	case permissionDenied:
		return false
	}

	granted, err := d.perm.Request(ctx)

	if err != nil || !granted {
		d.permState = permissionDenied
		d.logger.Info("Native notifications unavailable, degrading to visual", "error", err)
		return false
	}

	d.permState = permissionGranted
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, kind Kind, n Notification) {
	if sink == nil {
		return
	}

	if err := sink.Deliver(ctx, n); err != nil {
		d.logger.Warn("Notification delivery failed", "kind", kind, "error", err)
	}
}

// Summarize collapses a batch of simultaneous transitions into a single
// notification. One summarized alert beats a storm of per-order ones.
func Summarize(orders []*models.Order, singular, plural string) Notification {
	if len(orders) == 1 {
		return Notification{
			Title: singular,
			Body:  fmt.Sprintf("Order %s", orders[0].ID),
			Count: 1,
		}
	}

	return Notification{
		Title: plural,
		Body:  fmt.Sprintf("%d orders", len(orders)),
		Count: len(orders),
	}
}
