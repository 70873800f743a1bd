package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkowalcze/creditledger/internal/repository"
)

// DBTX is the subset of pgx both *pgxpool.Pool and pgx.Tx satisfy, so the
// same repositories work standalone and inside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) Accounts() repository.AccountRepo {
	return &AccountRepo{db: s.db}
}

func (s *Storage) Transactions() repository.TransactionRepo {
	return &TransactionRepo{db: s.db}
}

func (s *Storage) Packages() repository.PackageRepo {
	return &PackageRepo{db: s.db}
}

func (s *Storage) Codes() repository.ActivationCodeRepo {
	return &ActivationCodeRepo{db: s.db}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	err = fn(NewStorage(tx))

	return err
}
