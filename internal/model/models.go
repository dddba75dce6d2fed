// Package model defines the data models for the casino bot.
package model

import (
	"time"

	"casino-bot/internal/money"
)

// Game identifiers for the bet store. Both games share the same ledger
// and bet persistence; only roulette has a settlement scheduler.
const (
	GameRoulette  = "roulette"
	GameBlackjack = "blackjack"
)

// Account is a player account. The balance is persisted as a money
// string ("<major>.<minor>") and is only ever changed through signed
// transfers on the ledger, never by direct assignment.
type Account struct {
	UserID    string       `db:"user_id"`
	Nickname  string       `db:"nickname"`
	Balance   money.Amount `db:"balance"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// Bet is one pending wager. Bets are append-only: a user may accumulate
// several before a settlement, and they are only ever read back in full
// and cleared as a unit.
type Bet struct {
	ID        int64        `db:"id"`
	Game      string       `db:"game"`
	UserID    string       `db:"user_id"`
	Sender    string       `db:"sender"`
	Amount    money.Amount `db:"amount"`
	BetType   string       `db:"bet_type"`
	CreatedAt time.Time    `db:"created_at"`
}

// LedgerEntry records one signed balance change.
type LedgerEntry struct {
	ID          int64        `db:"id"`
	UserID      string       `db:"user_id"`
	Amount      money.Amount `db:"amount"`
	Type        string       `db:"type"`
	Description *string      `db:"description"`
	CreatedAt   time.Time    `db:"created_at"`
}

// Ledger entry types for categorizing balance changes.
const (
	TxTypeInitial    = "initial"     // Opening balance on account creation
	TxTypeBet        = "bet"         // Stake debited at bet placement
	TxTypeWin        = "win"         // Winnings credited at settlement
	TxTypeRefund     = "refund"      // Stake returned on bet cancellation
	TxTypeBeg        = "beg"         // /casino beg handout
	TxTypeHouseBonus = "house_bonus" // Nightly house grant
	TxTypeAdminGrant = "admin_grant" // Explicit admin credit
)
