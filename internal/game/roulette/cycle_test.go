package roulette

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func at(minute, second int) time.Time {
	return time.Date(2024, 6, 1, 12, minute, second, 0, time.UTC)
}

func TestPhaseAt(t *testing.T) {
	tests := []struct {
		name   string
		minute int
		second int
		want   Phase
	}{
		{"start of even minute", 2, 0, PhaseAccepting},
		{"late even minute", 2, 59, PhaseAccepting},
		{"start of odd minute", 3, 0, PhaseAccepting},
		{"just before window", 3, 54, PhaseAccepting},
		{"window opens", 3, 55, PhaseLocked},
		{"inside window", 3, 56, PhaseLocked},
		{"window end", 3, 59, PhaseLocked},
		{"next even minute", 4, 0, PhaseAccepting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseAt(at(tt.minute, tt.second)))
		})
	}
}

func TestTimeToSpin(t *testing.T) {
	tests := []struct {
		minute int
		second int
		want   int
	}{
		{2, 0, 115},
		{2, 30, 85},
		{3, 0, 55},
		{3, 54, 1},
		{3, 55, 0},
		{3, 59, 0},
		{4, 0, 115},
	}

	for _, tt := range tests {
		got := TimeToSpin(at(tt.minute, tt.second))
		assert.Equal(t, tt.want, got, "minute=%d second=%d", tt.minute, tt.second)
	}
}

// The countdown and the lock check derive from the same instant, so
// the countdown reaches zero exactly when the phase flips to locked.
func TestCycleConsistency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		minute := rapid.IntRange(0, 59).Draw(t, "minute")
		second := rapid.IntRange(0, 59).Draw(t, "second")
		now := at(minute, second)

		locked := PhaseAt(now) == PhaseLocked
		left := TimeToSpin(now)

		if locked && left != 0 {
			t.Fatalf("locked at %02d:%02d but countdown is %d", minute, second, left)
		}
		if !locked && (left <= 0 || left > 115) {
			t.Fatalf("accepting at %02d:%02d but countdown is %d", minute, second, left)
		}

		// Advancing by the countdown always lands inside a lock window
		if !locked {
			then := now.Add(time.Duration(left) * time.Second)
			if PhaseAt(then) != PhaseLocked {
				t.Fatalf("countdown %d from %02d:%02d does not reach the window", left, minute, second)
			}
		}
	})
}

func TestWindowIndex(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same period, same index
	assert.Equal(t, windowIndex(base), windowIndex(base.Add(119*time.Second)))
	// Next period, next index
	assert.Equal(t, windowIndex(base)+1, windowIndex(base.Add(2*time.Minute)))
}
