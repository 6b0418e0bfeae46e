package models

import (
	"strings"

	"github.com/ocakbasi/order-sync/pkg/errors"
)

// Status is the canonical lifecycle state of an order. Exactly five
// values exist; every legacy or localized label must normalize onto one
// of them before any logic runs.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCancelled Status = "cancelled"
)

// allowedTransitions is the full lifecycle state machine:
//
//	pending   -> preparing | cancelled
//	preparing -> ready | cancelled
//	ready     -> served
//	served    -> (terminal)
//	cancelled -> (terminal)
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed},
	StatusServed:    {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is one of the five canonical statuses
func ValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo checks if the order can move to the requested status
func (o *Order) CanTransitionTo(requested Status) bool {
	for _, s := range allowedTransitions[o.Status] {
		if s == requested {
			return true
		}
	}
	return false
}

// NextStatus resolves a requested transition against the state machine.
// Re-requesting the current status is a no-op success (changed=false),
// which makes retries and duplicate taps safe. A disallowed edge returns
// ErrInvalidTransition and leaves nothing decided.
func NextStatus(current, requested Status) (Status, bool, error) {
	if !ValidStatus(requested) {
		return current, false, errors.NewUnknownStatusError("unknown status: " + string(requested))
	}

	if current == requested {
		return current, false, nil
	}

	for _, s := range allowedTransitions[current] {
		if s == requested {
			return requested, true, nil
		}
	}

	return current, false, errors.NewInvalidTransitionError(
		"transition " + string(current) + " -> " + string(requested) + " is not allowed")
}

// statusLabels maps every known legacy and localized status label onto a
// canonical status. The table is finite and explicit; an unmapped label
// is an error, never a pass-through sixth status. Both "served" (table)
// and "delivered" (package/online) collapse onto the single terminal
// StatusServed.
var statusLabels = map[string]Status{
	// canonical
	"pending":   StatusPending,
	"preparing": StatusPreparing,
	"ready":     StatusReady,
	"served":    StatusServed,
	"cancelled": StatusCancelled,

	// legacy english
	"new":         StatusPending,
	"received":    StatusPending,
	"cooking":     StatusPreparing,
	"in_progress": StatusPreparing,
	"delivered":   StatusServed,
	"completed":   StatusServed,
	"canceled":    StatusCancelled,

	// legacy localized labels carried by the old suite
	"Yeni":          StatusPending,
	"yeni":          StatusPending,
	"Bekliyor":      StatusPending,
	"bekliyor":      StatusPending,
	"Hazırlanıyor":  StatusPreparing,
	"hazırlanıyor":  StatusPreparing,
	"Hazır":         StatusReady,
	"hazır":         StatusReady,
	"Servis Edildi": StatusServed,
	"servis edildi": StatusServed,
	"Teslim Edildi": StatusServed,
	"teslim edildi": StatusServed,
	"İptal":         StatusCancelled,
	"iptal":         StatusCancelled,
	"İptal Edildi":  StatusCancelled,
	"iptal edildi":  StatusCancelled,
}

// NormalizeStatus maps a raw status label onto a canonical status. The
// exact label is tried first so localized casing survives; otherwise the
// lowercased form is looked up.
func NormalizeStatus(label string) (Status, error) {
	trimmed := strings.TrimSpace(label)

	if s, ok := statusLabels[trimmed]; ok {
		return s, nil
	}

	if s, ok := statusLabels[strings.ToLower(trimmed)]; ok {
		return s, nil
	}

	return "", errors.NewUnknownStatusError("unknown status label: " + label)
}
