package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/models"
	"github.com/mkowalcze/creditledger/internal/repository"
)

// Service derives usage insights from the transaction log. It is strictly
// read-only: plain scans, no locks, and slightly stale data is fine.
type Service struct {
	storage repository.Storage
	now     func() time.Time
}

func NewService(storage repository.Storage) *Service {
	return &Service{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PredictDepletion projects days until zero balance from the average daily
// spend in the window. It is a naive linear run rate, kept deliberately
// simple: avg = sum(deducts) / windowDays, daysLeft = floor(balance / avg).
// ok is false when the window holds no deduct transactions at all.
func (s *Service) PredictDepletion(ctx context.Context, userID int64, windowDays int) (forecast models.DepletionForecast, ok bool, err error) {
	if windowDays <= 0 {
		return forecast, false, fmt.Errorf("window must be positive, got %d days", windowDays)
	}

	now := s.now()
	since := now.AddDate(0, 0, -windowDays)

	totalUsage, err := s.storage.Transactions().SumDeducted(ctx, userID, since)
	if err != nil {
		return forecast, false, err
	}
	if totalUsage == 0 {
		return forecast, false, nil
	}

	balance, err := s.currentBalance(ctx, userID)
	if err != nil {
		return forecast, false, err
	}

	forecast = models.DepletionForecast{
		CurrentBalance: balance,
		AvgDailyUsage:  float64(totalUsage) / float64(windowDays),
	}

	if forecast.AvgDailyUsage <= 0 {
		return forecast, true, nil
	}

	daysLeft := int(float64(balance) / forecast.AvgDailyUsage)
	depletionDate := now.AddDate(0, 0, daysLeft)
	forecast.DaysLeft = &daysLeft
	forecast.DepletionDate = &depletionDate

	return forecast, true, nil
}

// UsageBreakdown sums the deducted credits per category in the window,
// largest first. The categories partition the deduct set: every deduct
// carries exactly one category, unclassified spends sit in "other".
func (s *Service) UsageBreakdown(ctx context.Context, userID int64, windowDays int) ([]models.CategoryUsage, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d days", windowDays)
	}

	since := s.now().AddDate(0, 0, -windowDays)
	return s.storage.Transactions().DeductedByCategory(ctx, userID, since)
}

// BalanceHistory returns the balance-after series for the window, oldest
// first. It feeds the usage-over-time chart.
func (s *Service) BalanceHistory(ctx context.Context, userID int64, windowDays int) ([]models.BalancePoint, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d days", windowDays)
	}

	since := s.now().AddDate(0, 0, -windowDays)
	return s.storage.Transactions().BalanceHistory(ctx, userID, since)
}

// currentBalance reads without creating the account: analytics must not
// write anything, and a user without an account simply has zero credits.
func (s *Service) currentBalance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.storage.Accounts().Get(ctx, userID)

	switch {
	case err == nil:
		return account.Balance, nil
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return 0, nil
	default:
		return 0, err
	}
}
