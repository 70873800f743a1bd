package activation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/metrics"
	"github.com/mkowalcze/creditledger/internal/models"
	"github.com/mkowalcze/creditledger/internal/repository"
)

const (
	codeLength  = 8
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Collisions on an 8-char code are essentially theoretical; the cap
	// only guards against a misbehaving store.
	maxGenerateAttempts = 10
)

// Service owns activation codes: minting and one-time redemption.
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

// Redeem claims the code for the user and credits the account, all in one
// database transaction. Of concurrent redemptions of the same code exactly
// one succeeds; the rest get apperrors.ErrCodeInvalidOrUsed. Redeeming is
// safe to retry: a retry after success just reports the code as used.
func (s *Service) Redeem(ctx context.Context, userID int64, code string) (int64, error) {
	var credits int64

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		claimed, err := tx.Codes().Claim(ctx, code, userID, s.now())
		if err != nil {
			return err
		}
		credits = claimed.Credits

		account, err := tx.Accounts().ApplyCredit(ctx, userID, claimed.Credits)
		if err != nil {
			return err
		}

		_, err = tx.Transactions().Create(ctx, models.Transaction{
			UserID:        userID,
			Kind:          models.KindActivation,
			Amount:        claimed.Credits,
			BalanceBefore: account.Balance - claimed.Credits,
			BalanceAfter:  account.Balance,
			Description:   fmt.Sprintf("activation:%s", code),
		})
		return err
	})

	switch {
	case err == nil:
		s.metrics.RecordTransaction(models.KindActivation, credits, true)
		s.metrics.RecordCodeRedeemed()
		return credits, nil
	case errors.Is(err, apperrors.ErrCodeInvalidOrUsed):
		return 0, apperrors.ErrCodeInvalidOrUsed
	default:
		return 0, fmt.Errorf("can't redeem code. Err: %w", err)
	}
}

// Generate mints count unused codes worth credits each. Nothing is credited
// until a code is redeemed.
func (s *Service) Generate(ctx context.Context, credits int64, count int) ([]string, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("code credits must be positive, got %d", credits)
	}
	if count <= 0 {
		return nil, fmt.Errorf("code count must be positive, got %d", count)
	}

	codes := make([]string, 0, count)
	for range count {
		code, err := s.generateOne(ctx, credits)
		if err != nil {
			return codes, err
		}
		codes = append(codes, code)
	}

	return codes, nil
}

func (s *Service) generateOne(ctx context.Context, credits int64) (string, error) {
	for range maxGenerateAttempts {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", fmt.Errorf("can't generate code. Err: %w", err)
		}

		err = s.storage.Codes().Create(ctx, code, credits)
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, apperrors.ErrCodeExists):
			continue
		default:
			return "", fmt.Errorf("can't store code. Err: %w", err)
		}
	}

	return "", errors.New("can't generate unique activation code")
}

// CodeInfo returns the code's state; unknown codes report
// apperrors.ErrCodeInvalidOrUsed.
func (s *Service) CodeInfo(ctx context.Context, code string) (models.ActivationCode, error) {
	return s.storage.Codes().Get(ctx, code)
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}

	return string(buf), nil
}
