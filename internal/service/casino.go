// Package service provides the casino business logic: the account
// ledger policy and the façade consumed by the command handlers and
// the settlement scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"casino-bot/internal/game/roulette"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository"
)

// Common errors for casino operations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrCycleLocked is returned when a bet arrives during the lock
	// window, after adjudication has begun but before the draw.
	ErrCycleLocked = errors.New("the wheel is currently spinning")
)

// Params holds the casino economy knobs, decoded from configuration.
type Params struct {
	OpeningBalance   money.Amount
	BegReward        money.Amount
	NightlyBonus     money.Amount
	NightlyBonusHour int
}

// Casino is the façade over the ledger, the bet store and the cycle
// clock. All balance access is serialized per user id: through the
// in-process user lock against concurrent handlers, and through a
// row lock inside each database transaction.
type Casino struct {
	pool     *pgxpool.Pool
	accounts *repository.AccountRepository
	bets     *repository.BetRepository
	journal  *repository.LedgerRepository
	locks    *lock.UserLock
	clock    roulette.Clock
	params   Params
	log      zerolog.Logger
}

// NewCasino creates the casino service.
func NewCasino(
	pool *pgxpool.Pool,
	accounts *repository.AccountRepository,
	bets *repository.BetRepository,
	journal *repository.LedgerRepository,
	locks *lock.UserLock,
	clock roulette.Clock,
	params Params,
	logger zerolog.Logger,
) *Casino {
	return &Casino{
		pool:     pool,
		accounts: accounts,
		bets:     bets,
		journal:  journal,
		locks:    locks,
		clock:    clock,
		params:   params,
		log:      logger,
	}
}

// EnsureAccount creates an account with the opening balance if the
// user has none. Idempotent; reports whether it was newly created.
func (c *Casino) EnsureAccount(ctx context.Context, userID, nickname string) (*model.Account, bool, error) {
	var acc *model.Account
	var created bool

	err := c.locks.WithLock(userID, func() error {
		return repository.WithTx(ctx, c.pool, func(tx pgx.Tx) error {
			var err error
			acc, created, err = c.accounts.WithTx(tx).GetOrCreate(ctx, userID, nickname, c.params.OpeningBalance)
			if err != nil {
				return err
			}
			if created {
				desc := "opening balance"
				_, err = c.journal.WithTx(tx).Record(ctx, userID, c.params.OpeningBalance, model.TxTypeInitial, &desc)
			}
			return err
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure account: %w", err)
	}

	// Keep the stored nickname current.
	if !created && nickname != "" && acc.Nickname != nickname {
		if err := c.accounts.UpdateNickname(ctx, userID, nickname); err != nil {
			c.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to refresh nickname")
		} else {
			acc.Nickname = nickname
		}
	}

	return acc, created, nil
}

// Balance returns a user's current balance.
// Fails with repository.ErrAccountNotFound if never created.
func (c *Casino) Balance(ctx context.Context, userID string) (money.Amount, error) {
	acc, err := c.accounts.GetByID(ctx, userID)
	if err != nil {
		return money.Zero, err
	}
	return acc.Balance, nil
}

// HasSufficientFunds compares the current balance against the amount.
func (c *Casino) HasSufficientFunds(ctx context.Context, userID string, amount money.Amount) (bool, error) {
	balance, err := c.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance.Cmp(amount) >= 0, nil
}

// transferTx applies one signed delta inside the caller's transaction,
// with the account row locked, and journals it. This is the only
// balance mutator in the codebase.
func (c *Casino) transferTx(ctx context.Context, tx pgx.Tx, userID string, delta money.Amount, txType string, description *string) (money.Amount, error) {
	accounts := c.accounts.WithTx(tx)

	acc, err := accounts.GetForUpdate(ctx, userID)
	if err != nil {
		return money.Zero, err
	}

	newBalance := acc.Balance.Add(delta)
	if _, err := accounts.SetBalance(ctx, userID, newBalance); err != nil {
		return money.Zero, fmt.Errorf("failed to persist balance: %w", err)
	}
	if _, err := c.journal.WithTx(tx).Record(ctx, userID, delta, txType, description); err != nil {
		return money.Zero, err
	}
	return newBalance, nil
}

// TransferFunds applies one signed delta to a user's balance, allowing
// negative deltas for debits, and returns the new balance. Callers
// enforce sufficiency policy; the transfer itself is unconditional.
func (c *Casino) TransferFunds(ctx context.Context, userID string, delta money.Amount, txType string, description *string) (money.Amount, error) {
	var newBalance money.Amount
	err := c.locks.WithLock(userID, func() error {
		return repository.WithTx(ctx, c.pool, func(tx pgx.Tx) error {
			var err error
			newBalance, err = c.transferTx(ctx, tx, userID, delta, txType, description)
			return err
		})
	})
	return newBalance, err
}

// PlaceBet validates and records one wager: parses the amount, checks
// the bet grammar and the cycle phase, then debits the stake and
// appends the bet in a single transaction so neither can land without
// the other.
func (c *Casino) PlaceBet(ctx context.Context, game, sender, userID, amountText string, betWords []string) (*model.Bet, error) {
	amount, err := money.Decode(amountText)
	if err != nil {
		return nil, err
	}
	if amount.Cents() <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", money.ErrMalformedAmount)
	}

	var betType string
	if game == model.GameRoulette {
		bt, err := roulette.ParseBetType(betWords)
		if err != nil {
			return nil, err
		}
		betType = bt.String()

		if roulette.PhaseAt(c.clock.Now()) == roulette.PhaseLocked {
			return nil, ErrCycleLocked
		}
	} else {
		if len(betWords) != 1 || betWords[0] == "" {
			return nil, fmt.Errorf("%w: %v", roulette.ErrInvalidBet, betWords)
		}
		betType = betWords[0]
	}

	bet := &model.Bet{
		Game:    game,
		UserID:  userID,
		Sender:  sender,
		Amount:  amount,
		BetType: betType,
	}

	err = c.locks.WithLock(userID, func() error {
		return repository.WithTx(ctx, c.pool, func(tx pgx.Tx) error {
			acc, err := c.accounts.WithTx(tx).GetForUpdate(ctx, userID)
			if err != nil {
				return err
			}
			if acc.Balance.Cmp(amount) < 0 {
				return ErrInsufficientFunds
			}

			desc := game + " stake: " + betType
			if _, err := c.transferTx(ctx, tx, userID, amount.Neg(), model.TxTypeBet, &desc); err != nil {
				return err
			}
			return c.bets.WithTx(tx).Append(ctx, game, userID, sender, amount, betType)
		})
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("game", game).
		Str("user_id", userID).
		Str("amount", amount.Encode(false)).
		Str("bet_type", betType).
		Msg("Bet placed")

	return bet, nil
}

// ListBets returns a user's pending bets for a game.
func (c *Casino) ListBets(ctx context.Context, game, userID string) ([]model.Bet, error) {
	return c.bets.ListByUser(ctx, game, userID)
}

// CancelBets refunds every pending stake and clears the user's log,
// both in one transaction. Returns the refunded total and bet count.
func (c *Casino) CancelBets(ctx context.Context, game, userID string) (money.Amount, int, error) {
	refunded := money.Zero
	count := 0

	err := c.locks.WithLock(userID, func() error {
		return repository.WithTx(ctx, c.pool, func(tx pgx.Tx) error {
			bets := c.bets.WithTx(tx)

			pending, err := bets.ListByUser(ctx, game, userID)
			if err != nil {
				return err
			}
			count = len(pending)
			if count == 0 {
				return nil
			}

			for _, bet := range pending {
				refunded = refunded.Add(bet.Amount)
			}

			desc := game + " bets cancelled"
			if _, err := c.transferTx(ctx, tx, userID, refunded, model.TxTypeRefund, &desc); err != nil {
				return err
			}
			return bets.Clear(ctx, game, userID)
		})
	})
	if err != nil {
		return money.Zero, 0, err
	}

	return refunded, count, nil
}

// ActiveUsers enumerates every user with pending bets in a game.
// Part of the roulette.SettlementLedger interface.
func (c *Casino) ActiveUsers(ctx context.Context, game string) ([]string, error) {
	return c.bets.ActiveUsers(ctx, game)
}

// SettleUser evaluates every pending bet of one user against eval,
// credits the total winnings and clears the log, atomically. The stake
// was debited at placement, so settlement only ever credits. A bet
// arriving concurrently lands in the next cycle's log: the user lock
// excludes it until this settlement has committed.
// Part of the roulette.SettlementLedger interface.
func (c *Casino) SettleUser(ctx context.Context, game, userID string, eval func(model.Bet) money.Amount) (*roulette.SettlementResult, error) {
	result := &roulette.SettlementResult{Winnings: money.Zero}

	err := c.locks.WithLock(userID, func() error {
		return repository.WithTx(ctx, c.pool, func(tx pgx.Tx) error {
			acc, err := c.accounts.WithTx(tx).GetByID(ctx, userID)
			if err != nil {
				return err
			}
			result.Nickname = acc.Nickname

			bets := c.bets.WithTx(tx)
			pending, err := bets.ListByUser(ctx, game, userID)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				return nil
			}

			seen := make(map[string]bool, 1)
			for _, bet := range pending {
				result.Winnings = result.Winnings.Add(eval(bet))
				if !seen[bet.Sender] {
					seen[bet.Sender] = true
					result.Recipients = append(result.Recipients, bet.Sender)
				}
			}

			// Credit before clearing so a failure can never leave
			// winnings paid without the log removed, or vice versa.
			if !result.Winnings.IsZero() {
				desc := game + " winnings"
				if _, err := c.transferTx(ctx, tx, userID, result.Winnings, model.TxTypeWin, &desc); err != nil {
					return err
				}
			}
			return bets.Clear(ctx, game, userID)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Beg hands out the small configured pity reward.
func (c *Casino) Beg(ctx context.Context, userID string) (money.Amount, money.Amount, error) {
	desc := "begging for money"
	newBalance, err := c.TransferFunds(ctx, userID, c.params.BegReward, model.TxTypeBeg, &desc)
	if err != nil {
		return money.Zero, money.Zero, err
	}
	return c.params.BegReward, newBalance, nil
}

// GrantBonusAll credits every account the given amount. Per-user
// failures are logged and skipped; returns how many succeeded.
func (c *Casino) GrantBonusAll(ctx context.Context, amount money.Amount, txType string, description string) (int, error) {
	ids, err := c.accounts.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	granted := 0
	for _, userID := range ids {
		if _, err := c.TransferFunds(ctx, userID, amount, txType, &description); err != nil {
			c.log.Error().Err(err).Str("user_id", userID).Msg("Failed to grant bonus")
			continue
		}
		granted++
	}
	return granted, nil
}

// RunNightlyBonus credits every account the configured house bonus
// once per day during the configured hour. Runs until ctx is
// cancelled.
func (c *Casino) RunNightlyBonus(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	var lastDay int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := c.clock.Now()
			if now.Hour() != c.params.NightlyBonusHour || now.YearDay() == lastDay {
				continue
			}
			lastDay = now.YearDay()

			granted, err := c.GrantBonusAll(ctx, c.params.NightlyBonus, model.TxTypeHouseBonus, "nightly house bonus")
			if err != nil {
				c.log.Error().Err(err).Msg("Nightly bonus run failed")
				continue
			}
			c.log.Info().
				Int("accounts", granted).
				Str("amount", c.params.NightlyBonus.Encode(false)).
				Msg("Nightly house bonus granted")
		}
	}
}
