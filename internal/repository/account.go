package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// AccountRepository handles account persistence. Balances are stored as
// money strings ("<major>.<minor>") and decoded on read.
type AccountRepository struct {
	db Querier
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{db: tx}
}

const accountColumns = `user_id, nickname, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var acc model.Account
	var balance string
	err := row.Scan(&acc.UserID, &acc.Nickname, &balance, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	acc.Balance, err = money.Decode(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for %s: %w", acc.UserID, err)
	}
	return &acc, nil
}

// Create creates a new account with the given opening balance.
func (r *AccountRepository) Create(ctx context.Context, userID, nickname string, opening money.Amount) (*model.Account, error) {
	const query = `
		INSERT INTO accounts (user_id, nickname, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRow(ctx, query, userID, nickname, opening.Encode(false)))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// GetByID retrieves an account by user id.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, userID string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, userID))
}

// GetForUpdate retrieves an account and locks its row for the duration
// of the enclosing transaction. Must be called through WithTx.
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`
	return scanAccount(r.db.QueryRow(ctx, query, userID))
}

// GetOrCreate retrieves an account, creating one with the opening
// balance if it doesn't exist. Reports whether it was newly created.
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID, nickname string, opening money.Amount) (*model.Account, bool, error) {
	acc, err := r.GetByID(ctx, userID)
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	acc, err = r.Create(ctx, userID, nickname, opening)
	if err != nil {
		// Handle race condition: another request might have created it
		acc, err = r.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return acc, false, nil
	}

	return acc, true, nil
}

// SetBalance persists a new balance for the account. It is only called
// by the ledger service inside a transaction that holds the row lock;
// nothing else writes balances.
func (r *AccountRepository) SetBalance(ctx context.Context, userID string, balance money.Amount) (*model.Account, error) {
	const query = `
		UPDATE accounts
		SET balance = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + accountColumns

	return scanAccount(r.db.QueryRow(ctx, query, userID, balance.Encode(false)))
}

// UpdateNickname updates an account's display name.
func (r *AccountRepository) UpdateNickname(ctx context.Context, userID, nickname string) error {
	const query = `
		UPDATE accounts
		SET nickname = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.db.Exec(ctx, query, userID, nickname)
	if err != nil {
		return fmt.Errorf("failed to update nickname: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListIDs enumerates every account's user id. Used by the nightly
// house bonus grant.
func (r *AccountRepository) ListIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT user_id FROM accounts ORDER BY user_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
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
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return ids, nil
}

// Exists checks if an account with the given user id exists.
func (r *AccountRepository) Exists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}
