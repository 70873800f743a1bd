package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/metrics"
	"github.com/mkowalcze/creditledger/internal/models"
	"github.com/mkowalcze/creditledger/internal/repository"
)

// How much history Stats embeds.
const statsHistoryLimit = 10

// Service is the only writer to accounts and transactions. Every mutation
// couples the account update and the log append in one database
// transaction, so a failure leaves both untouched.
type Service struct {
	storage repository.Storage
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(storage repository.Storage, m *metrics.Metrics) *Service {
	return &Service{
		storage: storage,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreditParams describes a balance increase.
type CreditParams struct {
	UserID      int64
	Amount      int64
	Description string

	// Kind defaults to models.KindAdd and must be a credit kind.
	Kind string

	// Optional caller token. A replay with the same key returns the
	// originally recorded outcome and mutates nothing.
	IdempotencyKey string
}

// DebitParams describes a balance decrease.
type DebitParams struct {
	UserID      int64
	Amount      int64
	Description string

	// Spend category for analytics; empty lands in "other".
	Category string

	IdempotencyKey string
}

// Result of one ledger mutation.
type Result struct {
	Balance     int64
	Transaction models.Transaction

	// Replayed is set when an idempotency key matched a recorded
	// operation; Balance then reflects the balance at that recording.
	Replayed bool
}

// GetBalance returns the user's balance, lazily creating the account. The
// zero-balance initialization writes no transaction row. Storage faults
// propagate; deciding what the end user sees then is the caller's job.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.storage.Accounts().GetOrCreate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("can't get balance. Err: %w", err)
	}

	return account.Balance, nil
}

// CheckSufficient reports whether the balance covers amountNeeded. It does
// not reserve funds: the balance may change before a following Debit, which
// is why Debit re-checks atomically.
func (s *Service) CheckSufficient(ctx context.Context, userID int64, amountNeeded int64) (bool, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}

	return balance >= amountNeeded, nil
}

func (s *Service) Credit(ctx context.Context, p CreditParams) (Result, error) {
	if p.Amount < 0 {
		return Result{}, fmt.Errorf("credit amount must not be negative, got %d", p.Amount)
	}

	if p.Kind == "" {
		p.Kind = models.KindAdd
	}
	if !models.IsCreditKind(p.Kind) {
		return Result{}, fmt.Errorf("kind %q is not a credit kind", p.Kind)
	}

	// Zero-amount credit is a no-op: no transaction, balance unchanged.
	if p.Amount == 0 {
		balance, err := s.GetBalance(ctx, p.UserID)
		return Result{Balance: balance}, err
	}

	var result Result
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		account, err := tx.Accounts().ApplyCredit(ctx, p.UserID, p.Amount)
		if err != nil {
			return err
		}

		transaction, err := tx.Transactions().Create(ctx, models.Transaction{
			UserID:         p.UserID,
			Kind:           p.Kind,
			Amount:         p.Amount,
			BalanceBefore:  account.Balance - p.Amount,
			BalanceAfter:   account.Balance,
			Description:    p.Description,
			IdempotencyKey: p.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result = Result{Balance: account.Balance, Transaction: transaction}
		return nil
	})

	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateOperation) {
			return s.replayedResult(ctx, p.UserID, p.IdempotencyKey)
		}

		return Result{}, fmt.Errorf("can't credit user. Err: %w", err)
	}

	s.metrics.RecordTransaction(p.Kind, p.Amount, true)
	return result, nil
}

func (s *Service) Debit(ctx context.Context, p DebitParams) (Result, error) {
	if p.Amount <= 0 {
		return Result{}, fmt.Errorf("debit amount must be positive, got %d", p.Amount)
	}

	var result Result
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		account, err := tx.Accounts().ApplyDebit(ctx, p.UserID, p.Amount)
		if err != nil {
			return err
		}

		transaction, err := tx.Transactions().Create(ctx, models.Transaction{
			UserID:         p.UserID,
			Kind:           models.KindDeduct,
			Category:       p.Category,
			Amount:         p.Amount,
			BalanceBefore:  account.Balance + p.Amount,
			BalanceAfter:   account.Balance,
			Description:    p.Description,
			IdempotencyKey: p.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result = Result{Balance: account.Balance, Transaction: transaction}
		return nil
	})

	switch {
	case err == nil:
		s.metrics.RecordTransaction(models.KindDeduct, p.Amount, false)
		return result, nil
	case errors.Is(err, apperrors.ErrDuplicateOperation):
		return s.replayedResult(ctx, p.UserID, p.IdempotencyKey)
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return Result{}, apperrors.ErrInsufficientFunds
	default:
		return Result{}, fmt.Errorf("can't debit user. Err: %w", err)
	}
}

// Purchase tops the account up with an active package. It never fails for
// insufficient funds; only for an unknown/inactive package or a storage
// fault.
func (s *Service) Purchase(ctx context.Context, userID int64, packageID int64) (Result, models.CreditPackage, error) {
	var result Result
	var pkg models.CreditPackage

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		pkg, err = tx.Packages().GetActive(ctx, packageID)
		if err != nil {
			return err
		}

		account, err := tx.Accounts().ApplyPurchase(ctx, userID, pkg.Credits, pkg.Price, s.now())
		if err != nil {
			return err
		}

		transaction, err := tx.Transactions().Create(ctx, models.Transaction{
			UserID:        userID,
			Kind:          models.KindPurchase,
			Amount:        pkg.Credits,
			BalanceBefore: account.Balance - pkg.Credits,
			BalanceAfter:  account.Balance,
			Description:   fmt.Sprintf("Purchase of package %s", pkg.Name),
		})
		if err != nil {
			return err
		}

		result = Result{Balance: account.Balance, Transaction: transaction}
		return nil
	})

	switch {
	case err == nil:
		s.metrics.RecordTransaction(models.KindPurchase, pkg.Credits, true)
		return result, pkg, nil
	case errors.Is(err, apperrors.ErrPackageNotFound):
		return Result{}, models.CreditPackage{}, apperrors.ErrPackageNotFound
	default:
		return Result{}, models.CreditPackage{}, fmt.Errorf("can't purchase package. Err: %w", err)
	}
}

// ApplySubscription grants the periodic credits of a subscription plan and
// records the paid price, as a subscription or subscription_renewal entry.
func (s *Service) ApplySubscription(ctx context.Context, userID int64, credits int64, price decimal.Decimal, renewal bool) (Result, error) {
	if credits <= 0 {
		return Result{}, fmt.Errorf("subscription credits must be positive, got %d", credits)
	}

	kind := models.KindSubscription
	description := "Subscription activated"
	if renewal {
		kind = models.KindSubscriptionRenewal
		description = "Subscription renewed"
	}

	var result Result
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		account, err := tx.Accounts().ApplyPurchase(ctx, userID, credits, price, s.now())
		if err != nil {
			return err
		}

		transaction, err := tx.Transactions().Create(ctx, models.Transaction{
			UserID:        userID,
			Kind:          kind,
			Amount:        credits,
			BalanceBefore: account.Balance - credits,
			BalanceAfter:  account.Balance,
			Description:   description,
		})
		if err != nil {
			return err
		}

		result = Result{Balance: account.Balance, Transaction: transaction}
		return nil
	})

	if err != nil {
		return Result{}, fmt.Errorf("can't apply subscription. Err: %w", err)
	}

	s.metrics.RecordTransaction(kind, credits, true)
	return result, nil
}

// Stats returns the account summary with its most recent transactions.
func (s *Service) Stats(ctx context.Context, userID int64) (models.CreditStats, error) {
	account, err := s.storage.Accounts().GetOrCreate(ctx, userID)
	if err != nil {
		return models.CreditStats{}, fmt.Errorf("can't get account. Err: %w", err)
	}

	history, err := s.storage.Transactions().List(ctx, userID, repository.TransactionFilter{Limit: statsHistoryLimit})
	if err != nil {
		return models.CreditStats{}, fmt.Errorf("can't list transactions. Err: %w", err)
	}

	return models.CreditStats{Account: account, History: history}, nil
}

// replayedResult resolves an idempotency-key conflict to the outcome that
// was recorded the first time.
func (s *Service) replayedResult(ctx context.Context, userID int64, key string) (Result, error) {
	transaction, err := s.storage.Transactions().GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return Result{}, fmt.Errorf("can't load recorded operation. Err: %w", err)
	}

	return Result{
		Balance:     transaction.BalanceAfter,
		Transaction: transaction,
		Replayed:    true,
	}, nil
}
