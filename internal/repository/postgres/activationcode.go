package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/models"
)

type ActivationCodeRepo struct {
	db DBTX
}

const createCode = `-- name: CreateActivationCode
INSERT INTO activation_codes (code, credits)
VALUES ($1, $2)
`

func (r *ActivationCodeRepo) Create(ctx context.Context, code string, credits int64) error {
	_, err := r.db.Exec(ctx, createCode, code, credits)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperrors.ErrCodeExists
		}

		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const getCode = `-- name: GetActivationCode
SELECT code, credits, is_used, used_by, used_at, created_at
FROM activation_codes
WHERE code = $1
`

func (r *ActivationCodeRepo) Get(ctx context.Context, code string) (models.ActivationCode, error) {
	rows, _ := r.db.Query(ctx, getCode, code)
	ac, err := pgx.CollectOneRow(rows, rowToCode)

	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return ac, apperrors.ErrCodeInvalidOrUsed
	}

	return ac, err
}

// Claim flips is_used with a conditional update, so of any number of
// concurrent redemption attempts exactly one sees the unused row.
const claimCode = `-- name: ClaimActivationCode
UPDATE activation_codes
SET is_used = TRUE, used_by = $2, used_at = $3
WHERE code = $1 AND NOT is_used
RETURNING code, credits, is_used, used_by, used_at, created_at
`

func (r *ActivationCodeRepo) Claim(ctx context.Context, code string, userID int64, at time.Time) (models.ActivationCode, error) {
	rows, _ := r.db.Query(ctx, claimCode, code, userID, at)
	ac, err := pgx.CollectOneRow(rows, rowToCode)

	switch {
	case err == nil:
		return ac, nil
	case errors.Is(err, pgx.ErrNoRows):
		return ac, apperrors.ErrCodeInvalidOrUsed
	default:
		return ac, fmt.Errorf("db error: %w", err)
	}
}

func rowToCode(row pgx.CollectableRow) (models.ActivationCode, error) {
	var c models.ActivationCode
	err := row.Scan(&c.Code, &c.Credits, &c.IsUsed, &c.UsedBy, &c.UsedAt, &c.CreatedAt)
	return c, err
}
