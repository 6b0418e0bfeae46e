package escalation

import (
	"testing"
	"time"
)

func TestTierBoundaries(t *testing.T) {
	th := DefaultThresholds()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed time.Duration
		want    Tier
	}{
		{0, TierNormal},
		{9*time.Minute + 59*time.Second, TierNormal},
		{10 * time.Minute, TierUrgent},
		{11 * time.Minute, TierUrgent},
		{19*time.Minute + 59*time.Second, TierUrgent},
		{20 * time.Minute, TierCritical},
		{21 * time.Minute, TierCritical},
		{3 * time.Hour, TierCritical},
	}

	for _, tc := range cases {
		got := th.Tier(t0, t0.Add(tc.elapsed))

		if got != tc.want {
			t.Errorf("Tier at elapsed %v = %s, want %s", tc.elapsed, got, tc.want)
		}
	}
}

func TestTierUsesCallerClock(t *testing.T) {
	th := Thresholds{Urgent: 5 * time.Minute, Critical: 8 * time.Minute}
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same order, different "now": the tier must move with the clock
	if got := th.Tier(created, created.Add(4*time.Minute)); got != TierNormal {
		t.Errorf("at 4m got %s, want normal", got)
	}

	if got := th.Tier(created, created.Add(6*time.Minute)); got != TierUrgent {
		t.Errorf("at 6m got %s, want urgent", got)
	}

	if got := th.Tier(created, created.Add(9*time.Minute)); got != TierCritical {
		t.Errorf("at 9m got %s, want critical", got)
	}
}

func TestTierString(t *testing.T) {
	if TierNormal.String() != "normal" || TierUrgent.String() != "urgent" || TierCritical.String() != "critical" {
		t.Error("tier names do not match")
	}
}
