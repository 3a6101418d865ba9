package escalate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kitchen-display/internal/display/escalate"
)

func TestClassifyTiers(t *testing.T) {
	th := escalate.DefaultThresholds()

	assert.Equal(t, escalate.TierOnTime, escalate.Classify(0, th))
	assert.Equal(t, escalate.TierOnTime, escalate.Classify(299*time.Second, th))
	// boundary values resolve to the higher tier
	assert.Equal(t, escalate.TierWarning, escalate.Classify(300*time.Second, th))
	assert.Equal(t, escalate.TierWarning, escalate.Classify(599*time.Second, th))
	assert.Equal(t, escalate.TierOverdue, escalate.Classify(600*time.Second, th))
	assert.Equal(t, escalate.TierOverdue, escalate.Classify(601*time.Second, th))
}

func TestClassifyNegativeClamps(t *testing.T) {
	th := escalate.DefaultThresholds()
	assert.Equal(t, escalate.TierOnTime, escalate.Classify(-time.Minute, th))
}

func TestElapsedClockSkew(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// ordered_at in the future never yields a negative stopwatch
	assert.Equal(t, time.Duration(0), escalate.Elapsed(now, now.Add(time.Minute)))
	assert.Equal(t, 90*time.Second, escalate.Elapsed(now, now.Add(-90*time.Second)))
}
