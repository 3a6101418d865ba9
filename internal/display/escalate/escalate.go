// Package escalate maps elapsed wait time to an urgency tier.
package escalate

import "time"

type Tier string

const (
	TierOnTime  Tier = "ontime"
	TierWarning Tier = "warning"
	TierOverdue Tier = "overdue"
)

type Thresholds struct {
	Warning time.Duration
	Overdue time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 5 * time.Minute, Overdue: 10 * time.Minute}
}

// Classify is pure; boundary values resolve to the higher tier.
func Classify(elapsed time.Duration, t Thresholds) Tier {
	if elapsed < 0 {
		elapsed = 0
	}
	switch {
	case elapsed >= t.Overdue:
		return TierOverdue
	case elapsed >= t.Warning:
		return TierWarning
	default:
		return TierOnTime
	}
}

// Elapsed computes the stopwatch value fresh from "now" on every call.
// A future orderedAt (clock skew) clamps to zero, never negative.
func Elapsed(now, orderedAt time.Time) time.Duration {
	d := now.Sub(orderedAt)
	if d < 0 {
		return 0
	}
	return d
}
