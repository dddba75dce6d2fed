package roulette

import "time"

// The betting cycle is fixed at 120 seconds of wall-clock time. The
// wheel spins during the final lockSeconds of every odd-numbered
// minute, so the lock window recurs once per period regardless of when
// any particular bet was placed.
const (
	CyclePeriod = 120 * time.Second
	lockSeconds = 5
)

// Phase is the cycle state, derived from wall-clock time on every
// check and never persisted.
type Phase int

const (
	// PhaseAccepting means new bets may be placed.
	PhaseAccepting Phase = iota
	// PhaseLocked means the draw is imminent and new bets are rejected.
	PhaseLocked
	// PhaseSettling means a settlement is in progress.
	PhaseSettling
)

func (p Phase) String() string {
	switch p {
	case PhaseAccepting:
		return "accepting"
	case PhaseLocked:
		return "locked"
	case PhaseSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// PhaseAt derives the cycle phase from a wall-clock instant: locked
// during the final lockSeconds of every odd minute.
func PhaseAt(t time.Time) Phase {
	if t.Minute()%2 == 1 && t.Second() >= 60-lockSeconds {
		return PhaseLocked
	}
	return PhaseAccepting
}

// TimeToSpin returns the seconds until the next lock window opens,
// zero while the window is open. Uses the same arithmetic as PhaseAt
// so a "time left" reply and a bet rejection can never disagree.
func TimeToSpin(t time.Time) int {
	left := int(CyclePeriod/time.Second) - t.Second() - lockSeconds
	if t.Minute()%2 == 1 {
		left -= 60
	}
	if left < 0 {
		return 0
	}
	return left
}

// windowIndex identifies the 120-second period containing t, used to
// settle each lock window exactly once.
func windowIndex(t time.Time) int64 {
	return t.Unix() / int64(CyclePeriod/time.Second)
}
