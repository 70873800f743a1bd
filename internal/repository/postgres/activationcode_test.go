package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/repository"
	"github.com/mkowalcze/creditledger/internal/testutil"
)

func TestActivationCode(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("Create", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			err := storage.Codes().Create(t.Context(), "BONUS100", 100)
			require.NoError(t, err, "code has to be created ok")

			err = storage.Codes().Create(t.Context(), "BONUS100", 100)

			require.Error(t, err, "creating same code twice should fail")
			require.ErrorIs(t, err, apperrors.ErrCodeExists, "should return well known error")
		})
	})

	t.Run("Get", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			err := storage.Codes().Create(t.Context(), "BONUS100", 100)
			require.NoError(t, err)

			t.Run("get ok", func(t *testing.T) {
				code, err := storage.Codes().Get(t.Context(), "BONUS100")

				require.NoError(t, err)
				require.Equal(t, "BONUS100", code.Code)
				require.Equal(t, int64(100), code.Credits)
				require.False(t, code.IsUsed, "fresh code should not be used")
				require.Nil(t, code.UsedBy)
				require.Nil(t, code.UsedAt)
			})

			t.Run("unknown code", func(t *testing.T) {
				_, err := storage.Codes().Get(t.Context(), "NOPE")

				require.ErrorIs(t, err, apperrors.ErrCodeInvalidOrUsed, "should return well known error")
			})
		})
	})

	t.Run("Claim", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			err := storage.Codes().Create(t.Context(), "BONUS100", 100)
			require.NoError(t, err)

			usedAt := time.Now().UTC().Truncate(time.Second)

			t.Run("claim ok", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					code, err := storage.Codes().Claim(t.Context(), "BONUS100", 100, usedAt)

					require.NoError(t, err, "claiming unused code should not fail")
					require.True(t, code.IsUsed)
					require.NotNil(t, code.UsedBy)
					require.Equal(t, int64(100), *code.UsedBy)
					require.NotNil(t, code.UsedAt)
					require.WithinDuration(t, usedAt, *code.UsedAt, time.Second)
				})
			})

			t.Run("claim used code", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Codes().Claim(t.Context(), "BONUS100", 100, usedAt)
					require.NoError(t, err)

					_, err = storage.Codes().Claim(t.Context(), "BONUS100", 200, usedAt)

					require.Error(t, err, "claiming used code should fail")
					require.ErrorIs(t, err, apperrors.ErrCodeInvalidOrUsed, "should return well known error")
				})
			})

			t.Run("claim unknown code", func(t *testing.T) {
				_, err := storage.Codes().Claim(t.Context(), "NOPE", 100, usedAt)

				require.ErrorIs(t, err, apperrors.ErrCodeInvalidOrUsed)
			})
		})
	})
}
