package ledger

import (
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/models"
	"github.com/mkowalcze/creditledger/internal/repository"
	"github.com/mkowalcze/creditledger/internal/repository/postgres"
	"github.com/mkowalcze/creditledger/internal/testutil"
)

func TestLedger(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper function to create ledger Service within transaction
	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := NewService(storage, nil)
			fn(service, storage)
		})
	}

	t.Run("GetBalance", func(t *testing.T) {
		t.Run("new user starts at zero", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				balance, err := s.GetBalance(t.Context(), 42)

				require.NoError(t, err, "getting balance for new user should succeed")
				require.Zero(t, balance, "initial balance should be zero")

				history, err := storage.Transactions().List(t.Context(), 42, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Empty(t, history, "account initialization should not write transactions")
			})
		})
	})

	t.Run("CheckSufficient", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100})
			require.NoError(t, err)

			sufficient, err := s.CheckSufficient(t.Context(), 42, 100)
			require.NoError(t, err)
			require.True(t, sufficient, "exact balance should be sufficient")

			sufficient, err = s.CheckSufficient(t.Context(), 42, 101)
			require.NoError(t, err)
			require.False(t, sufficient, "balance below needed amount should not be sufficient")
		})
	})

	t.Run("Credit", func(t *testing.T) {
		t.Run("credit ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				result, err := s.Credit(t.Context(), CreditParams{
					UserID:      42,
					Amount:      100,
					Description: "welcome bonus",
				})

				require.NoError(t, err, "crediting should succeed")
				require.Equal(t, int64(100), result.Balance)
				require.False(t, result.Replayed)
				require.Equal(t, models.KindAdd, result.Transaction.Kind, "kind should default to add")
				require.Equal(t, int64(0), result.Transaction.BalanceBefore)
				require.Equal(t, int64(100), result.Transaction.BalanceAfter)
				require.Equal(t, "welcome bonus", result.Transaction.Description)
			})
		})

		t.Run("negative amount fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: -1})

				require.Error(t, err, "crediting negative amount should fail")
			})
		})

		t.Run("zero amount is no-op", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100})
				require.NoError(t, err)

				result, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 0})

				require.NoError(t, err, "zero credit should succeed")
				require.Equal(t, int64(100), result.Balance, "balance should be unchanged")

				history, err := storage.Transactions().List(t.Context(), 42, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, history, 1, "zero credit should not write a transaction")
			})
		})

		t.Run("debit kind rejected", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 10, Kind: models.KindDeduct})

				require.Error(t, err, "crediting with debit kind should fail")
			})
		})
	})

	t.Run("Debit", func(t *testing.T) {
		t.Run("debit ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100})
				require.NoError(t, err)

				result, err := s.Debit(t.Context(), DebitParams{
					UserID:      42,
					Amount:      30,
					Description: "image generation",
					Category:    models.CategoryImage,
				})

				require.NoError(t, err, "debiting should succeed")
				require.Equal(t, int64(70), result.Balance)
				require.Equal(t, models.KindDeduct, result.Transaction.Kind)
				require.Equal(t, models.CategoryImage, result.Transaction.Category)
				require.Equal(t, int64(100), result.Transaction.BalanceBefore)
				require.Equal(t, int64(70), result.Transaction.BalanceAfter)
			})
		})

		t.Run("non positive amount fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.Debit(t.Context(), DebitParams{UserID: 42, Amount: 0})
				require.Error(t, err, "zero debit should fail")

				_, err = s.Debit(t.Context(), DebitParams{UserID: 42, Amount: -5})
				require.Error(t, err, "negative debit should fail")
			})
		})

		t.Run("insufficient funds", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100})
				require.NoError(t, err)

				_, err = s.Debit(t.Context(), DebitParams{UserID: 42, Amount: 1000})

				require.Error(t, err, "debiting more than balance should fail")
				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

				balance, err := s.GetBalance(t.Context(), 42)
				require.NoError(t, err)
				require.Equal(t, int64(100), balance, "balance should be unchanged after failed debit")

				history, err := storage.Transactions().List(t.Context(), 42, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, history, 1, "failed debit should not write a transaction")
			})
		})

		// Race debits on separate pool connections, so the conditional update
		// serialization is exercised for real, not inside one rolled back tx
		t.Run("concurrent debits never overdraw", func(t *testing.T) {
			storage := postgres.NewStorage(pg.Pool)
			s := NewService(storage, nil)

			_, err := s.Credit(t.Context(), CreditParams{UserID: 4242, Amount: 100})
			require.NoError(t, err)

			// Eight racers want 30 each; only three fit into 100
			const attempts = 8
			results := make(chan error, attempts)
			var wg sync.WaitGroup
			for range attempts {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Debit(t.Context(), DebitParams{UserID: 4242, Amount: 30})
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			succeeded := 0
			for err := range results {
				if err == nil {
					succeeded++
					continue
				}
				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds, "losers should fail with insufficient funds")
			}
			require.Equal(t, 3, succeeded, "only three 30-credit debits fit into 100")

			balance, err := s.GetBalance(t.Context(), 4242)
			require.NoError(t, err)
			require.Equal(t, int64(10), balance, "balance should never go negative")

			history, err := storage.Transactions().List(t.Context(), 4242, repository.TransactionFilter{})
			require.NoError(t, err)
			require.Len(t, history, 4, "one credit and one row per successful debit")
		})
	})

	t.Run("Idempotency", func(t *testing.T) {
		t.Run("credit replay", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				first, err := s.Credit(t.Context(), CreditParams{
					UserID:         42,
					Amount:         100,
					IdempotencyKey: "grant-1",
				})
				require.NoError(t, err)

				replay, err := s.Credit(t.Context(), CreditParams{
					UserID:         42,
					Amount:         100,
					IdempotencyKey: "grant-1",
				})

				require.NoError(t, err, "replay should not fail")
				require.True(t, replay.Replayed, "replay should be flagged")
				require.Equal(t, first.Transaction.ID, replay.Transaction.ID, "replay should return the recorded transaction")
				require.Equal(t, first.Balance, replay.Balance)

				balance, err := s.GetBalance(t.Context(), 42)
				require.NoError(t, err)
				require.Equal(t, int64(100), balance, "replay should not credit twice")

				history, err := storage.Transactions().List(t.Context(), 42, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, history, 1, "replay should not write a second transaction")
			})
		})

		t.Run("debit replay", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100})
				require.NoError(t, err)

				first, err := s.Debit(t.Context(), DebitParams{
					UserID:         42,
					Amount:         30,
					IdempotencyKey: "spend-1",
				})
				require.NoError(t, err)

				replay, err := s.Debit(t.Context(), DebitParams{
					UserID:         42,
					Amount:         30,
					IdempotencyKey: "spend-1",
				})

				require.NoError(t, err)
				require.True(t, replay.Replayed)
				require.Equal(t, first.Transaction.ID, replay.Transaction.ID)

				balance, err := s.GetBalance(t.Context(), 42)
				require.NoError(t, err)
				require.Equal(t, int64(70), balance, "replay should not debit twice")
			})
		})
	})

	t.Run("Purchase", func(t *testing.T) {
		t.Run("purchase ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				pkg, err := storage.Packages().Add(t.Context(), "Pro", 500, decimal.NewFromFloat(19.99))
				require.NoError(t, err)

				result, got, err := s.Purchase(t.Context(), 42, pkg.ID)

				require.NoError(t, err, "purchase should succeed")
				require.Equal(t, pkg.ID, got.ID)
				require.Equal(t, int64(500), result.Balance)
				require.Equal(t, models.KindPurchase, result.Transaction.Kind)
				require.Equal(t, "Purchase of package Pro", result.Transaction.Description)

				account, err := storage.Accounts().Get(t.Context(), 42)
				require.NoError(t, err)
				require.Equal(t, int64(500), account.TotalPurchased)
				require.True(t, account.TotalSpent.Equal(decimal.NewFromFloat(19.99)))
				require.NotNil(t, account.LastPurchaseAt)
			})
		})

		t.Run("unknown package", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, _, err := s.Purchase(t.Context(), 42, 99999)

				require.ErrorIs(t, err, apperrors.ErrPackageNotFound)
			})
		})

		t.Run("inactive package", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				pkg, err := storage.Packages().Add(t.Context(), "Old", 100, decimal.NewFromFloat(4.99))
				require.NoError(t, err)
				err = storage.Packages().SetActive(t.Context(), pkg.ID, false)
				require.NoError(t, err)

				_, _, err = s.Purchase(t.Context(), 42, pkg.ID)

				require.ErrorIs(t, err, apperrors.ErrPackageNotFound, "inactive package should not be purchasable")
			})
		})
	})

	t.Run("ApplySubscription", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			result, err := s.ApplySubscription(t.Context(), 42, 300, decimal.NewFromFloat(9.99), false)

			require.NoError(t, err, "subscription activation should succeed")
			require.Equal(t, int64(300), result.Balance)
			require.Equal(t, models.KindSubscription, result.Transaction.Kind)
			require.Equal(t, "Subscription activated", result.Transaction.Description)

			result, err = s.ApplySubscription(t.Context(), 42, 300, decimal.NewFromFloat(9.99), true)

			require.NoError(t, err, "subscription renewal should succeed")
			require.Equal(t, int64(600), result.Balance)
			require.Equal(t, models.KindSubscriptionRenewal, result.Transaction.Kind)
			require.Equal(t, "Subscription renewed", result.Transaction.Description)
		})
	})

	t.Run("Stats", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			_, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100, Description: "welcome"})
			require.NoError(t, err)
			_, err = s.Debit(t.Context(), DebitParams{UserID: 42, Amount: 30, Category: models.CategoryMessage})
			require.NoError(t, err)

			stats, err := s.Stats(t.Context(), 42)

			require.NoError(t, err, "getting stats should succeed")
			require.Equal(t, int64(70), stats.Account.Balance)
			require.Equal(t, int64(100), stats.Account.TotalPurchased)
			require.Len(t, stats.History, 2)
			require.Equal(t, models.KindDeduct, stats.History[0].Kind, "history should be newest first")
		})
	})

	// Full account lifecycle: grant, spend, failed overdraft, package top-up.
	t.Run("Lifecycle", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			balance, err := s.GetBalance(t.Context(), 42)
			require.NoError(t, err)
			require.Zero(t, balance, "fresh account should start at zero")

			result, err := s.Credit(t.Context(), CreditParams{UserID: 42, Amount: 100, Description: "welcome bonus"})
			require.NoError(t, err)
			require.Equal(t, int64(100), result.Balance)

			result, err = s.Debit(t.Context(), DebitParams{UserID: 42, Amount: 30, Category: models.CategoryMessage})
			require.NoError(t, err)
			require.Equal(t, int64(70), result.Balance)

			_, err = s.Debit(t.Context(), DebitParams{UserID: 42, Amount: 1000})
			require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

			pkg, err := storage.Packages().Add(t.Context(), "Pro", 500, decimal.NewFromFloat(19.99))
			require.NoError(t, err)

			result, _, err = s.Purchase(t.Context(), 42, pkg.ID)
			require.NoError(t, err)
			require.Equal(t, int64(570), result.Balance)

			account, err := storage.Accounts().Get(t.Context(), 42)
			require.NoError(t, err)
			require.Equal(t, int64(570), account.Balance)
			require.Equal(t, int64(600), account.TotalPurchased)
			require.True(t, account.TotalSpent.Equal(decimal.NewFromFloat(19.99)))

			// The failed overdraft must have left no trace in the log
			history, err := storage.Transactions().List(t.Context(), 42, repository.TransactionFilter{})
			require.NoError(t, err)
			require.Len(t, history, 3)
			for _, transaction := range history {
				require.NotEqual(t, int64(1000), transaction.Amount, "failed debit should not be logged")
			}
		})
	})
}
