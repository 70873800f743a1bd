package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/models"
)

type PackageRepo struct {
	db DBTX
}

const listActivePackages = `-- name: ListActivePackages
SELECT id, name, credits, price, is_active
FROM packages
WHERE is_active
ORDER BY credits ASC
`

func (r *PackageRepo) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	rows, _ := r.db.Query(ctx, listActivePackages)
	packages, err := pgx.CollectRows(rows, rowToPackage)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return packages, nil
}

const getActivePackage = `-- name: GetActivePackage
SELECT id, name, credits, price, is_active
FROM packages
WHERE id = $1 AND is_active
`

func (r *PackageRepo) GetActive(ctx context.Context, id int64) (models.CreditPackage, error) {
	rows, _ := r.db.Query(ctx, getActivePackage, id)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)

	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return pkg, apperrors.ErrPackageNotFound
	}

	return pkg, err
}

const addPackage = `-- name: AddPackage
INSERT INTO packages (name, credits, price)
VALUES ($1, $2, $3)
RETURNING id, name, credits, price, is_active
`

func (r *PackageRepo) Add(ctx context.Context, name string, credits int64, price decimal.Decimal) (models.CreditPackage, error) {
	rows, _ := r.db.Query(ctx, addPackage, name, credits, price)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)

	if err != nil {
		return pkg, fmt.Errorf("db error: %w", err)
	}

	return pkg, nil
}

const setPackageActive = `-- name: SetPackageActive
UPDATE packages
SET is_active = $2
WHERE id = $1
`

func (r *PackageRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, setPackageActive, id, active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrPackageNotFound
	}

	return nil
}

func rowToPackage(row pgx.CollectableRow) (models.CreditPackage, error) {
	var p models.CreditPackage
	err := row.Scan(&p.ID, &p.Name, &p.Credits, &p.Price, &p.IsActive)
	return p, err
}
