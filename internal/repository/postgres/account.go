package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/models"
)

type AccountRepo struct {
	db DBTX
}

const getOrCreateAccount = `-- name: GetOrCreateAccount
INSERT INTO accounts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING user_id, balance, total_purchased, total_spent, last_purchase_at, created_at
`

func (r *AccountRepo) GetOrCreate(ctx context.Context, userID int64) (models.Account, error) {
	rows, _ := r.db.Query(ctx, getOrCreateAccount, userID)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const getAccount = `-- name: GetAccount
SELECT user_id, balance, total_purchased, total_spent, last_purchase_at, created_at
FROM accounts
WHERE user_id = $1
`

func (r *AccountRepo) Get(ctx context.Context, userID int64) (models.Account, error) {
	rows, _ := r.db.Query(ctx, getAccount, userID)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return account, apperrors.ErrAccountNotFound
	}

	return account, err
}

// Balance mutations are single conditional statements, so the database row
// is the unit of serialization and concurrent callers never interleave a
// read with a stale write.

const applyCredit = `-- name: ApplyCredit
INSERT INTO accounts (user_id, balance, total_purchased)
VALUES ($1, $2, $2)
ON CONFLICT (user_id) DO UPDATE
SET balance = accounts.balance + $2, total_purchased = accounts.total_purchased + $2
RETURNING user_id, balance, total_purchased, total_spent, last_purchase_at, created_at
`

func (r *AccountRepo) ApplyCredit(ctx context.Context, userID int64, amount int64) (models.Account, error) {
	rows, _ := r.db.Query(ctx, applyCredit, userID, amount)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const applyDebit = `-- name: ApplyDebit
UPDATE accounts
SET balance = balance - $2
WHERE user_id = $1 AND balance >= $2
RETURNING user_id, balance, total_purchased, total_spent, last_purchase_at, created_at
`

func (r *AccountRepo) ApplyDebit(ctx context.Context, userID int64, amount int64) (models.Account, error) {
	rows, _ := r.db.Query(ctx, applyDebit, userID, amount)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Missing account and underfunded account look the same here:
		// the user cannot pay.
		return account, apperrors.ErrInsufficientFunds
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const applyPurchase = `-- name: ApplyPurchase
INSERT INTO accounts (user_id, balance, total_purchased, total_spent, last_purchase_at)
VALUES ($1, $2, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET balance = accounts.balance + $2,
    total_purchased = accounts.total_purchased + $2,
    total_spent = accounts.total_spent + $3,
    last_purchase_at = $4
RETURNING user_id, balance, total_purchased, total_spent, last_purchase_at, created_at
`

func (r *AccountRepo) ApplyPurchase(ctx context.Context, userID int64, credits int64, price decimal.Decimal, at time.Time) (models.Account, error) {
	rows, _ := r.db.Query(ctx, applyPurchase, userID, credits, price, at)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.UserID, &a.Balance, &a.TotalPurchased, &a.TotalSpent, &a.LastPurchaseAt, &a.CreatedAt)
	return a, err
}
