package roulette

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeLedger records settlement calls in memory.
type fakeLedger struct {
	mu       sync.Mutex
	users    []string
	bets     map[string][]model.Bet
	settled  map[string]int // settle call count per user
	failures map[string]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		bets:     make(map[string][]model.Bet),
		settled:  make(map[string]int),
		failures: make(map[string]error),
	}
}

func (l *fakeLedger) failUser(userID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[userID] = err
}

func (l *fakeLedger) addBet(userID, sender, betType, amount string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.bets[userID]; !ok {
		l.users = append(l.users, userID)
	}
	l.bets[userID] = append(l.bets[userID], model.Bet{
		Game:    model.GameRoulette,
		UserID:  userID,
		Sender:  sender,
		Amount:  money.MustDecode(amount),
		BetType: betType,
	})
}

func (l *fakeLedger) ActiveUsers(_ context.Context, game string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.users...), nil
}

func (l *fakeLedger) SettleUser(_ context.Context, _ string, userID string, eval func(model.Bet) money.Amount) (*SettlementResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.failures[userID]; err != nil {
		return nil, err
	}

	l.settled[userID]++

	total := money.Zero
	seen := make(map[string]bool)
	var recipients []string
	for _, bet := range l.bets[userID] {
		total = total.Add(eval(bet))
		if !seen[bet.Sender] {
			seen[bet.Sender] = true
			recipients = append(recipients, bet.Sender)
		}
	}

	delete(l.bets, userID)
	for i, u := range l.users {
		if u == userID {
			l.users = append(l.users[:i], l.users[i+1:]...)
			break
		}
	}

	return &SettlementResult{Nickname: "user" + userID, Recipients: recipients, Winnings: total}, nil
}

// fakeNotifier collects delivered messages.
type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{messages: make(map[string][]string)}
}

func (n *fakeNotifier) Send(recipient, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[recipient] = append(n.messages[recipient], text)
	return nil
}

func (n *fakeNotifier) count(recipient string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages[recipient])
}

func newTestScheduler(ledger SettlementLedger, notifier Notifier, clock Clock) *Scheduler {
	return NewScheduler(ledger, notifier, zerolog.Nop(),
		WithClock(clock),
		WithRand(rand.New(rand.NewSource(1))),
	)
}

func TestScheduler_SettlesOncePerWindow(t *testing.T) {
	clock := newFakeClock(at(2, 0))
	ledger := newFakeLedger()
	notifier := newFakeNotifier()
	ledger.addBet("1", "chat1", "red", "10.00")

	s := newTestScheduler(ledger, notifier, clock)
	ctx := context.Background()

	// Accepting phase: polling does nothing
	s.pollOnce(ctx)
	assert.Zero(t, ledger.settled["1"])

	// Enter the lock window: exactly one settlement, repeated polls
	// inside the same window are no-ops
	clock.Set(at(3, 55))
	s.pollOnce(ctx)
	clock.Set(at(3, 57))
	s.pollOnce(ctx)
	clock.Set(at(3, 59))
	s.pollOnce(ctx)
	assert.Equal(t, 1, ledger.settled["1"])
	assert.Equal(t, 1, notifier.count("chat1"))

	// Next window settles again
	ledger.addBet("1", "chat1", "black", "5.00")
	clock.Set(at(5, 56))
	s.pollOnce(ctx)
	assert.Equal(t, 2, ledger.settled["1"])
}

func TestScheduler_SettlesEveryBettor(t *testing.T) {
	clock := newFakeClock(at(1, 55))
	ledger := newFakeLedger()
	notifier := newFakeNotifier()
	ledger.addBet("1", "chatA", "red", "10.00")
	ledger.addBet("2", "chatA", "17", "1.00")
	ledger.addBet("2", "chatB", "black", "2.00")

	s := newTestScheduler(ledger, notifier, clock)
	s.pollOnce(context.Background())

	assert.Equal(t, 1, ledger.settled["1"])
	assert.Equal(t, 1, ledger.settled["2"])
	// User 2 bet from two chats and is notified in both
	assert.Equal(t, 2, notifier.count("chatA"))
	assert.Equal(t, 1, notifier.count("chatB"))
	// Settled bets are gone
	users, err := ledger.ActiveUsers(context.Background(), model.GameRoulette)
	require.NoError(t, err)
	assert.Empty(t, users)
}

// One user's settlement failure must not stop the cycle: the remaining
// users are still settled and notified, and the failed user keeps their
// bets for the next cycle.
func TestScheduler_SkipsFailedUser(t *testing.T) {
	clock := newFakeClock(at(1, 55))
	ledger := newFakeLedger()
	notifier := newFakeNotifier()
	ledger.addBet("1", "chatA", "red", "10.00")
	ledger.addBet("2", "chatB", "red", "10.00")
	ledger.failUser("1", assert.AnError)

	s := newTestScheduler(ledger, notifier, clock)
	s.pollOnce(context.Background())

	assert.Zero(t, ledger.settled["1"])
	assert.Zero(t, notifier.count("chatA"))

	assert.Equal(t, 1, ledger.settled["2"])
	assert.Equal(t, 1, notifier.count("chatB"))

	// The failed user's bets survive into the next cycle
	users, err := ledger.ActiveUsers(context.Background(), model.GameRoulette)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, users)
}

// A stored bet that no longer parses settles as lost instead of
// aborting the user's settlement.
func TestScheduler_UnreadableBetSettlesAsLost(t *testing.T) {
	clock := newFakeClock(at(1, 55))
	ledger := newFakeLedger()
	notifier := newFakeNotifier()
	ledger.addBet("1", "chat1", "???", "10.00")

	s := newTestScheduler(ledger, notifier, clock)
	s.pollOnce(context.Background())

	assert.Equal(t, 1, ledger.settled["1"])
	assert.Equal(t, 1, notifier.count("chat1"))

	// The log is cleared and nothing was won
	users, err := ledger.ActiveUsers(context.Background(), model.GameRoulette)
	require.NoError(t, err)
	assert.Empty(t, users)

	notifier.mu.Lock()
	msg := notifier.messages["chat1"][0]
	notifier.mu.Unlock()
	assert.Contains(t, msg, "won 0.00€")
}

func TestScheduler_ForceSpin(t *testing.T) {
	clock := newFakeClock(at(2, 10))
	ledger := newFakeLedger()
	notifier := newFakeNotifier()
	ledger.addBet("1", "chat1", "odd", "10.00")

	s := newTestScheduler(ledger, notifier, clock)

	outcome, err := s.ForceSpin(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, outcome, 0)
	assert.LessOrEqual(t, outcome, 36)
	assert.Equal(t, 1, ledger.settled["1"])
}

func TestScheduler_ForceSpinInsideWindowSuppressesTimer(t *testing.T) {
	clock := newFakeClock(at(3, 55))
	ledger := newFakeLedger()
	notifier := newFakeNotifier()
	ledger.addBet("1", "chat1", "even", "10.00")

	s := newTestScheduler(ledger, notifier, clock)

	_, err := s.ForceSpin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.settled["1"])

	// The timer poll in the same window must not settle a second time
	ledger.addBet("1", "chat1", "even", "10.00")
	s.pollOnce(context.Background())
	assert.Equal(t, 1, ledger.settled["1"])
}

// blockingLedger parks the first settlement until released so a
// concurrent request can be raced against it.
type blockingLedger struct {
	*fakeLedger
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *blockingLedger) SettleUser(ctx context.Context, game, userID string, eval func(model.Bet) money.Amount) (*SettlementResult, error) {
	l.once.Do(func() { close(l.entered) })
	<-l.release
	return l.fakeLedger.SettleUser(ctx, game, userID, eval)
}

// A forced spin arriving while a timer settlement is in flight is
// rejected, never interleaved with it.
func TestScheduler_ForceSpinDuringSettlementIsBusy(t *testing.T) {
	clock := newFakeClock(at(1, 55))
	inner := newFakeLedger()
	inner.addBet("1", "chat1", "red", "10.00")
	ledger := &blockingLedger{
		fakeLedger: inner,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	notifier := newFakeNotifier()

	s := newTestScheduler(ledger, notifier, clock)

	done := make(chan struct{})
	go func() {
		s.pollOnce(context.Background())
		close(done)
	}()

	select {
	case <-ledger.entered:
	case <-time.After(time.Second):
		t.Fatal("timer settlement never started")
	}

	_, err := s.ForceSpin(context.Background())
	assert.ErrorIs(t, err, ErrCycleBusy)

	close(ledger.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer settlement never finished")
	}

	// The blocked settlement completed exactly once
	assert.Equal(t, 1, inner.settled["1"])
	assert.Equal(t, 1, notifier.count("chat1"))
}

func TestScheduler_Phase(t *testing.T) {
	clock := newFakeClock(at(2, 10))
	s := newTestScheduler(newFakeLedger(), newFakeNotifier(), clock)

	assert.Equal(t, PhaseAccepting, s.Phase())
	assert.Equal(t, 105, s.TimeRemaining())

	clock.Set(at(3, 56))
	assert.Equal(t, PhaseLocked, s.Phase())
	assert.Equal(t, 0, s.TimeRemaining())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	clock := newFakeClock(at(2, 0))
	s := NewScheduler(newFakeLedger(), newFakeNotifier(), zerolog.Nop(),
		WithClock(clock),
		WithTick(time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestSettlementText(t *testing.T) {
	result := &SettlementResult{Nickname: "alice", Winnings: money.MustDecode("1350.00")}

	assert.Equal(t, "The winning number is 17 (black)\nalice won 1 350.00€", settlementText(17, result))
	assert.Equal(t, "The winning number is 0\nalice won 1 350.00€", settlementText(0, result))
}
