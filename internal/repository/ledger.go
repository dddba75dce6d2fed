package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// LedgerRepository persists the journal of signed balance changes. The
// sum of a user's entries always equals their balance minus the opening
// balance; the journal is how that invariant stays auditable.
type LedgerRepository struct {
	db Querier
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(db Querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// Record appends one signed entry to a user's journal.
func (r *LedgerRepository) Record(ctx context.Context, userID string, amount money.Amount, txType string, description *string) (*model.LedgerEntry, error) {
	const query = `
		INSERT INTO ledger_entries (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, amount, type, description, created_at
	`

	var entry model.LedgerEntry
	var amountStr string
	err := r.db.QueryRow(ctx, query, userID, amount.Encode(false), txType, description).Scan(
		&entry.ID,
		&entry.UserID,
		&amountStr,
		&entry.Type,
		&entry.Description,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}
	entry.Amount, err = money.Decode(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt ledger amount: %w", err)
	}
	return &entry, nil
}

// GetByUserID retrieves a user's entries, newest first.
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	const query = `
		SELECT id, user_id, amount, type, description, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		var amountStr string
		err := rows.Scan(&entry.ID, &entry.UserID, &amountStr, &entry.Type, &entry.Description, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Amount, err = money.Decode(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger amount: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// SumByUser returns the exact sum of all of a user's entries. With the
// opening-balance entry included, this must equal the current balance.
func (r *LedgerRepository) SumByUser(ctx context.Context, userID string) (money.Amount, error) {
	entries, err := r.GetByUserID(ctx, userID, 1_000_000)
	if err != nil {
		return money.Zero, err
	}

	total := money.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}
