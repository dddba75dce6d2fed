package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// BetRepository handles pending-wager persistence. The bet log is
// append-only per (game, user): rows accumulate until settlement or
// cancellation clears them as a unit.
type BetRepository struct {
	db Querier
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(db Querier) *BetRepository {
	return &BetRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *BetRepository) WithTx(tx pgx.Tx) *BetRepository {
	return &BetRepository{db: tx}
}

// Append records one bet at the end of the user's per-game log.
func (r *BetRepository) Append(ctx context.Context, game, userID, sender string, amount money.Amount, betType string) error {
	const query = `
		INSERT INTO bets (game, user_id, sender, amount, bet_type, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.db.Exec(ctx, query, game, userID, sender, amount.Encode(false), betType)
	if err != nil {
		return fmt.Errorf("failed to append bet: %w", err)
	}
	return nil
}

// ListByUser returns the user's pending bets in placement order.
// Re-reading is safe and yields the same set until the next clear.
func (r *BetRepository) ListByUser(ctx context.Context, game, userID string) ([]model.Bet, error) {
	const query = `
		SELECT id, game, user_id, sender, amount, bet_type, created_at
		FROM bets
		WHERE game = $1 AND user_id = $2
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, game, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	var bets []model.Bet
	for rows.Next() {
		var bet model.Bet
		var amount string
		err := rows.Scan(&bet.ID, &bet.Game, &bet.UserID, &bet.Sender, &amount, &bet.BetType, &bet.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bet.Amount, err = money.Decode(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt bet amount for %s: %w", userID, err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// Clear deletes the user's entire per-game bet log. Called only after
// the corresponding payout or refund has been applied to the ledger.
func (r *BetRepository) Clear(ctx context.Context, game, userID string) error {
	const query = `DELETE FROM bets WHERE game = $1 AND user_id = $2`

	if _, err := r.db.Exec(ctx, query, game, userID); err != nil {
		return fmt.Errorf("failed to clear bets: %w", err)
	}
	return nil
}

// ActiveUsers enumerates every user with at least one pending bet in
// the given game.
func (r *BetRepository) ActiveUsers(ctx context.Context, game string) ([]string, error) {
	const query = `SELECT DISTINCT user_id FROM bets WHERE game = $1 ORDER BY user_id`

	rows, err := r.db.Query(ctx, query, game)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active users: %w", err)
	}
	return ids, nil
}
