package models

import (
	"errors"
	"testing"

	apperrors "github.com/ocakbasi/order-sync/pkg/errors"
)

func TestNextStatusAllowedEdges(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusPreparing},
		{StatusPending, StatusCancelled},
		{StatusPreparing, StatusReady},
		{StatusPreparing, StatusCancelled},
		{StatusReady, StatusServed},
	}

	for _, tc := range cases {
		next, changed, err := NextStatus(tc.from, tc.to)

		if err != nil {
			t.Errorf("NextStatus(%s, %s) returned error: %v", tc.from, tc.to, err)
			continue
		}

		if !changed {
			t.Errorf("NextStatus(%s, %s) reported no change", tc.from, tc.to)
		}

		if next != tc.to {
			t.Errorf("NextStatus(%s, %s) = %s, want %s", tc.from, tc.to, next, tc.to)
		}
	}
}

func TestNextStatusRejectedEdges(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusReady},
		{StatusPending, StatusServed},
		{StatusPreparing, StatusServed},
		{StatusReady, StatusCancelled},
		{StatusReady, StatusPending},
		{StatusServed, StatusPending},
		{StatusServed, StatusCancelled},
		{StatusCancelled, StatusPreparing},
		{StatusCancelled, StatusServed},
	}

	for _, tc := range cases {
		next, changed, err := NextStatus(tc.from, tc.to)

		if err == nil {
			t.Errorf("NextStatus(%s, %s) succeeded, want rejection", tc.from, tc.to)
			continue
		}

		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("NextStatus(%s, %s) error = %v, want ErrInvalidTransition", tc.from, tc.to, err)
		}

		if changed {
			t.Errorf("NextStatus(%s, %s) reported a change despite rejection", tc.from, tc.to)
		}

		if next != tc.from {
			t.Errorf("NextStatus(%s, %s) moved to %s on rejection", tc.from, tc.to, next)
		}
	}
}

func TestNextStatusIdempotentNoOp(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusPreparing, StatusReady, StatusServed, StatusCancelled} {
		next, changed, err := NextStatus(s, s)

		if err != nil {
			t.Errorf("NextStatus(%s, %s) returned error: %v", s, s, err)
		}

		if changed {
			t.Errorf("NextStatus(%s, %s) reported a change for a re-request", s, s)
		}

		if next != s {
			t.Errorf("NextStatus(%s, %s) = %s", s, s, next)
		}
	}
}

func TestNextStatusUnknownRequested(t *testing.T) {
	_, _, err := NextStatus(StatusPending, Status("shipped"))

	if err == nil {
		t.Fatal("NextStatus accepted an unknown status")
	}

	if !errors.Is(err, apperrors.ErrUnknownStatus) {
		t.Errorf("error = %v, want ErrUnknownStatus", err)
	}
}

func TestNormalizeStatusCanonicalAndLegacy(t *testing.T) {
	cases := map[string]Status{
		"pending":     StatusPending,
		"  ready  ":   StatusReady,
		"new":         StatusPending,
		"cooking":     StatusPreparing,
		"in_progress": StatusPreparing,
		"delivered":   StatusServed,
		"completed":   StatusServed,
		"canceled":    StatusCancelled,
		"PENDING":     StatusPending,
		"Delivered":   StatusServed,
	}

	for label, want := range cases {
		got, err := NormalizeStatus(label)

		if err != nil {
			t.Errorf("NormalizeStatus(%q) returned error: %v", label, err)
			continue
		}

		if got != want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", label, got, want)
		}
	}
}

// Localized labels must hit the exact-match table first: lowercasing
// dotted capital İ in Go produces a combining mark, not a plain i.
func TestNormalizeStatusLocalizedLabels(t *testing.T) {
	cases := map[string]Status{
		"Yeni":          StatusPending,
		"Bekliyor":      StatusPending,
		"Hazırlanıyor":  StatusPreparing,
		"Hazır":         StatusReady,
		"Servis Edildi": StatusServed,
		"Teslim Edildi": StatusServed,
		"İptal":         StatusCancelled,
		"İptal Edildi":  StatusCancelled,
	}

	for label, want := range cases {
		got, err := NormalizeStatus(label)

		if err != nil {
			t.Errorf("NormalizeStatus(%q) returned error: %v", label, err)
			continue
		}

		if got != want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestNormalizeStatusUnknownLabel(t *testing.T) {
	for _, label := range []string{"", "shipped", "on_the_way", "hazir"} {
		if _, err := NormalizeStatus(label); err == nil {
			t.Errorf("NormalizeStatus(%q) succeeded, want error", label)
		} else if !errors.Is(err, apperrors.ErrUnknownStatus) {
			t.Errorf("NormalizeStatus(%q) error = %v, want ErrUnknownStatus", label, err)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	served := &Order{Status: StatusServed}
	cancelled := &Order{Status: StatusCancelled}
	open := &Order{Status: StatusReady}

	if !served.Terminal() {
		t.Error("served order should be terminal")
	}

	if !cancelled.Terminal() {
		t.Error("cancelled order should be terminal")
	}

	if open.Terminal() {
		t.Error("ready order should not be terminal")
	}
}
