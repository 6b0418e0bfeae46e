package escalation

import "time"

// Tier is the urgency classification of an open order, derived purely
// from elapsed time since creation. It is recomputed on every render and
// never persisted; a stored tier would drift from "now".
type Tier int

const (
	TierNormal Tier = iota
	TierUrgent
	TierCritical
)

// String returns the tier name
func (t Tier) String() string {
	switch t {
	case TierUrgent:
		return "urgent"
	case TierCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Thresholds holds the elapsed-time boundaries for escalation. These are
// configuration, not business constants; see config.DisplayConfig.
type Thresholds struct {
	Urgent   time.Duration
	Critical time.Duration
}

// DefaultThresholds returns the standard 10/20 minute boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		Urgent:   10 * time.Minute,
		Critical: 20 * time.Minute,
	}
}

// Tier classifies an order by elapsed time. Pure function of creation
// time and the caller's clock; no poll cache timestamp is ever involved.
func (th Thresholds) Tier(createdAt, now time.Time) Tier {
	elapsed := now.Sub(createdAt)

	switch {
	case elapsed >= th.Critical:
		return TierCritical
	case elapsed >= th.Urgent:
		return TierUrgent
	default:
		return TierNormal
	}
}
