package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/models"
	"github.com/mkowalcze/creditledger/internal/repository"
)

type TransactionRepo struct {
	db DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (user_id, kind, category, amount, balance_before, balance_after, description, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
RETURNING id, user_id, kind, category, amount, balance_before, balance_after, description, COALESCE(idempotency_key, ''), created_at
`

func (r *TransactionRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.Category == "" {
		t.Category = models.CategoryOther
	}

	rows, _ := r.db.Query(ctx, createTransaction,
		t.UserID, t.Kind, t.Category, t.Amount, t.BalanceBefore, t.BalanceAfter, t.Description, t.IdempotencyKey,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrDuplicateOperation
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getByIdempotencyKey = `-- name: GetTransactionByIdempotencyKey
SELECT id, user_id, kind, category, amount, balance_before, balance_after, description, COALESCE(idempotency_key, ''), created_at
FROM transactions
WHERE user_id = $1 AND idempotency_key = $2
`

func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (models.Transaction, error) {
	rows, _ := r.db.Query(ctx, getByIdempotencyKey, userID, key)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		return t, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func (r *TransactionRepo) List(ctx context.Context, userID int64, filter repository.TransactionFilter) ([]models.Transaction, error) {
	query := strings.Builder{}
	query.WriteString(`
	SELECT id, user_id, kind, category, amount, balance_before, balance_after, description, COALESCE(idempotency_key, ''), created_at
	FROM transactions
	WHERE user_id = $1
	`)

	args := []any{userID}

	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		fmt.Fprintf(&query, " AND created_at >= $%d", len(args))
	}

	if len(filter.Kinds) > 0 {
		args = append(args, filter.Kinds)
		fmt.Fprintf(&query, " AND kind = ANY($%d)", len(args))
	}

	query.WriteString(" ORDER BY created_at DESC, id DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}

	rows, _ := r.db.Query(ctx, query.String(), args...)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const sumDeducted = `-- name: SumDeducted
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE user_id = $1 AND kind = 'deduct' AND created_at >= $2
`

func (r *TransactionRepo) SumDeducted(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, sumDeducted, userID, since).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

const deductedByCategory = `-- name: DeductedByCategory
SELECT category, SUM(amount)
FROM transactions
WHERE user_id = $1 AND kind = 'deduct' AND created_at >= $2
GROUP BY category
ORDER BY SUM(amount) DESC
`

func (r *TransactionRepo) DeductedByCategory(ctx context.Context, userID int64, since time.Time) ([]models.CategoryUsage, error) {
	rows, _ := r.db.Query(ctx, deductedByCategory, userID, since)
	usage, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CategoryUsage, error) {
		var u models.CategoryUsage
		err := row.Scan(&u.Category, &u.Amount)
		u.Label = models.CategoryLabel(u.Category)
		return u, err
	})

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return usage, nil
}

const balanceHistory = `-- name: BalanceHistory
SELECT created_at, balance_after
FROM transactions
WHERE user_id = $1 AND created_at >= $2
ORDER BY created_at ASC, id ASC
`

func (r *TransactionRepo) BalanceHistory(ctx context.Context, userID int64, since time.Time) ([]models.BalancePoint, error) {
	rows, _ := r.db.Query(ctx, balanceHistory, userID, since)
	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BalancePoint, error) {
		var p models.BalancePoint
		err := row.Scan(&p.At, &p.Balance)
		return p, err
	})

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return points, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Category, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Description, &t.IdempotencyKey, &t.CreatedAt)
	return t, err
}
