package roulette

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// Scheduler errors.
var (
	// ErrCycleBusy is returned when a forced spin races an in-progress
	// settlement; the later request is rejected, never interleaved.
	ErrCycleBusy = errors.New("a settlement is already in progress")
)

// Clock abstracts wall-clock time so tests can run bounded cycles
// without real two-minute waits.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Notifier delivers an unsolicited settlement message to the address a
// bet was placed from. Implemented by the messaging transport.
type Notifier interface {
	Send(recipient, text string) error
}

// SettlementResult is what settling a single user produced.
type SettlementResult struct {
	Nickname   string
	Recipients []string     // distinct sender addresses of the user's bets
	Winnings   money.Amount // total credited, zero included
}

// SettlementLedger is the slice of the casino service the scheduler
// drives: enumerating bettors and atomically settling one user's bets
// against an evaluator for the drawn outcome.
type SettlementLedger interface {
	ActiveUsers(ctx context.Context, game string) ([]string, error)
	SettleUser(ctx context.Context, game, userID string, eval func(model.Bet) money.Amount) (*SettlementResult, error)
}

// Scheduler owns the betting-cycle clock. It polls once per tick,
// draws an outcome when the lock window of a new cycle is reached,
// settles every pending bet and emits one notification per bettor.
// It runs for the lifetime of the process unless its context is
// cancelled.
type Scheduler struct {
	ledger   SettlementLedger
	notifier Notifier
	clock    Clock
	rng      *rand.Rand
	tick     time.Duration
	log      zerolog.Logger

	settleMu   sync.Mutex
	lastWindow int64 // last settled windowIndex, guarded by settleMu
	settling   atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand replaces the outcome source, for tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// WithTick replaces the poll interval, for tests.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// NewScheduler creates a Scheduler for the roulette game.
func NewScheduler(ledger SettlementLedger, notifier Notifier, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		ledger:     ledger,
		notifier:   notifier,
		clock:      SystemClock{},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		tick:       time.Second,
		log:        logger,
		lastWindow: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls the clock until ctx is cancelled, settling once per lock
// window. The loop never terminates on a settlement error.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.Info().Str("game", model.GameRoulette).Msg("Settlement scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Settlement scheduler stopped")
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce checks the clock and settles if a new lock window has been
// reached. Exported behavior is driven through Run; tests call the
// same path by ticking a fake clock.
func (s *Scheduler) pollOnce(ctx context.Context) {
	now := s.clock.Now()
	if PhaseAt(now) != PhaseLocked {
		return
	}

	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	window := windowIndex(now)
	if window == s.lastWindow {
		return
	}
	s.lastWindow = window

	s.settle(ctx)
}

// ForceSpin performs an out-of-band settlement for an authorized admin
// request. It is mutually exclusive with a timer-triggered settlement:
// the later of the two is rejected with ErrCycleBusy. The normal clock
// resumes afterwards.
func (s *Scheduler) ForceSpin(ctx context.Context) (int, error) {
	if !s.settleMu.TryLock() {
		return 0, ErrCycleBusy
	}
	defer s.settleMu.Unlock()

	// If forced inside a lock window, mark that window settled so the
	// timer does not immediately spin a second time.
	now := s.clock.Now()
	if PhaseAt(now) == PhaseLocked {
		s.lastWindow = windowIndex(now)
	}

	return s.settle(ctx), nil
}

// Phase returns the current cycle phase.
func (s *Scheduler) Phase() Phase {
	if s.settling.Load() {
		return PhaseSettling
	}
	return PhaseAt(s.clock.Now())
}

// TimeRemaining returns the seconds left until the next spin.
func (s *Scheduler) TimeRemaining() int {
	return TimeToSpin(s.clock.Now())
}

// settle draws the outcome and settles every active bettor. The caller
// holds settleMu. Per-user failures are logged and skipped; users
// already settled keep their payouts.
func (s *Scheduler) settle(ctx context.Context) int {
	outcome := s.rng.Intn(37)
	s.settling.Store(true)
	defer s.settling.Store(false)

	s.log.Info().Int("outcome", outcome).Msg("Spinning the wheel")

	users, err := s.ledger.ActiveUsers(ctx, model.GameRoulette)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to enumerate bettors")
		return outcome
	}

	for _, userID := range users {
		result, err := s.ledger.SettleUser(ctx, model.GameRoulette, userID, func(bet model.Bet) money.Amount {
			won, err := EvaluateStored(outcome, bet.BetType, bet.Amount)
			if err != nil {
				s.log.Error().Err(err).
					Str("user_id", userID).
					Str("bet_type", bet.BetType).
					Msg("Unreadable stored bet treated as lost")
				return money.Zero
			}
			return won
		})
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to settle user")
			continue
		}

		s.log.Info().
			Str("user_id", userID).
			Str("winnings", result.Winnings.Encode(false)).
			Int("outcome", outcome).
			Msg("User settled")

		s.notify(outcome, result)
	}

	return outcome
}

// notify emits the settlement summary to every address the user's bets
// came from. Delivery failures are logged; the settlement itself has
// already been durably applied.
func (s *Scheduler) notify(outcome int, result *SettlementResult) {
	text := settlementText(outcome, result)
	for _, recipient := range result.Recipients {
		if err := s.notifier.Send(recipient, text); err != nil {
			s.log.Error().Err(err).Str("recipient", recipient).Msg("Failed to deliver settlement notice")
		}
	}
}

func settlementText(outcome int, result *SettlementResult) string {
	heading := fmt.Sprintf("The winning number is %d", outcome)
	if c := Color(outcome); c != "" {
		heading += " (" + c + ")"
	}
	return fmt.Sprintf("%s\n%s won %s€", heading, result.Nickname, result.Winnings.Encode(true))
}
