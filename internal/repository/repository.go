package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/models"
)

// Account repository interface
// The ledger service is the only caller allowed to mutate accounts.
type AccountRepo interface {
	// Get account or create it lazily with zero balance.
	// Lazy creation writes no transaction row.
	GetOrCreate(ctx context.Context, userID int64) (models.Account, error)

	// Get account
	// If account not found must return apperrors.ErrAccountNotFound
	Get(ctx context.Context, userID int64) (models.Account, error)

	// Atomically increase balance and total_purchased.
	// Creates the account when it does not exist yet.
	ApplyCredit(ctx context.Context, userID int64, amount int64) (models.Account, error)

	// Atomically decrease balance, but only when the account holds enough.
	// Must return apperrors.ErrInsufficientFunds when the account is missing
	// or underfunded, without mutating anything.
	ApplyDebit(ctx context.Context, userID int64, amount int64) (models.Account, error)

	// Atomically apply a paid top-up: balance and total_purchased grow by
	// credits, total_spent by price, last_purchase_at is set to at.
	ApplyPurchase(ctx context.Context, userID int64, credits int64, price decimal.Decimal, at time.Time) (models.Account, error)
}

// Filter for transaction listing. Zero value means "everything".
type TransactionFilter struct {
	Kinds []string
	Since time.Time
	Limit int
}

// Transaction repository interface
type TransactionRepo interface {
	// Append one immutable log row. The store assigns ID and CreatedAt.
	// A duplicate (user_id, idempotency_key) pair must return
	// apperrors.ErrDuplicateOperation.
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// Return the transaction recorded for the given idempotency key.
	GetByIdempotencyKey(ctx context.Context, userID int64, key string) (models.Transaction, error)

	// List transactions, newest first.
	List(ctx context.Context, userID int64, filter TransactionFilter) ([]models.Transaction, error)

	// Sum of deducted credits since the given moment.
	SumDeducted(ctx context.Context, userID int64, since time.Time) (int64, error)

	// Deducted credits grouped by category since the given moment.
	DeductedByCategory(ctx context.Context, userID int64, since time.Time) ([]models.CategoryUsage, error)

	// Balance-after samples since the given moment, oldest first.
	BalanceHistory(ctx context.Context, userID int64, since time.Time) ([]models.BalancePoint, error)
}

// CreditPackage repository interface
type PackageRepo interface {
	// Active packages ordered by credits ascending.
	ListActive(ctx context.Context) ([]models.CreditPackage, error)

	// Get an active package by id.
	// Absent or inactive packages must return apperrors.ErrPackageNotFound
	GetActive(ctx context.Context, id int64) (models.CreditPackage, error)

	Add(ctx context.Context, name string, credits int64, price decimal.Decimal) (models.CreditPackage, error)

	// Toggle the active flag.
	// Must return apperrors.ErrPackageNotFound when the package is unknown.
	SetActive(ctx context.Context, id int64, active bool) error
}

// ActivationCode repository interface
type ActivationCodeRepo interface {
	// Insert a fresh unused code.
	// Must return apperrors.ErrCodeExists on a code collision so the caller
	// can regenerate.
	Create(ctx context.Context, code string, credits int64) error

	// Get code by its value.
	// Unknown codes must return apperrors.ErrCodeInvalidOrUsed
	Get(ctx context.Context, code string) (models.ActivationCode, error)

	// Atomically claim an unused code for the user. Exactly one concurrent
	// claim of the same code may succeed; the rest must get
	// apperrors.ErrCodeInvalidOrUsed.
	Claim(ctx context.Context, code string, userID int64, at time.Time) (models.ActivationCode, error)
}

// Storage bundles the repositories over one database handle
type Storage interface {
	Accounts() AccountRepo
	Transactions() TransactionRepo
	Packages() PackageRepo
	Codes() ActivationCodeRepo

	// Run fn within one database transaction. The Storage passed to fn is
	// bound to that transaction; returning an error rolls everything back.
	InTx(ctx context.Context, fn func(Storage) error) error
}
