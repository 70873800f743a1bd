package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/repository"
	"github.com/mkowalcze/creditledger/internal/testutil"
)

func TestPackage(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("Add", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			pkg, err := storage.Packages().Add(t.Context(), "Starter", 100, decimal.NewFromFloat(4.99))

			require.NoError(t, err, "adding package should not fail")
			require.NotZero(t, pkg.ID)
			require.Equal(t, "Starter", pkg.Name)
			require.Equal(t, int64(100), pkg.Credits)
			require.True(t, pkg.Price.Equal(decimal.NewFromFloat(4.99)))
			require.True(t, pkg.IsActive, "new package should be active")
		})
	})

	t.Run("ListActive", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			large, err := storage.Packages().Add(t.Context(), "Large", 1000, decimal.NewFromFloat(29.99))
			require.NoError(t, err)
			_, err = storage.Packages().Add(t.Context(), "Small", 100, decimal.NewFromFloat(4.99))
			require.NoError(t, err)

			t.Run("ordered by credits", func(t *testing.T) {
				packages, err := storage.Packages().ListActive(t.Context())

				require.NoError(t, err)
				require.Len(t, packages, 2)
				require.Equal(t, "Small", packages[0].Name, "smaller package should come first")
				require.Equal(t, "Large", packages[1].Name)
			})

			t.Run("skips deactivated", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					err := storage.Packages().SetActive(t.Context(), large.ID, false)
					require.NoError(t, err)

					packages, err := storage.Packages().ListActive(t.Context())

					require.NoError(t, err)
					require.Len(t, packages, 1, "deactivated package should not be listed")
					require.Equal(t, "Small", packages[0].Name)
				})
			})
		})
	})

	t.Run("GetActive", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			pkg, err := storage.Packages().Add(t.Context(), "Starter", 100, decimal.NewFromFloat(4.99))
			require.NoError(t, err)

			t.Run("get ok", func(t *testing.T) {
				got, err := storage.Packages().GetActive(t.Context(), pkg.ID)

				require.NoError(t, err)
				require.Equal(t, pkg.ID, got.ID)
				require.Equal(t, pkg.Name, got.Name)
			})

			t.Run("deactivated package is not found", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					err := storage.Packages().SetActive(t.Context(), pkg.ID, false)
					require.NoError(t, err)

					_, err = storage.Packages().GetActive(t.Context(), pkg.ID)

					require.ErrorIs(t, err, apperrors.ErrPackageNotFound, "should return well known error")
				})
			})

			t.Run("unknown package", func(t *testing.T) {
				_, err := storage.Packages().GetActive(t.Context(), 99999)

				require.ErrorIs(t, err, apperrors.ErrPackageNotFound)
			})
		})
	})

	t.Run("SetActive", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			err := storage.Packages().SetActive(t.Context(), 99999, true)

			require.ErrorIs(t, err, apperrors.ErrPackageNotFound, "updating unknown package should fail")
		})
	})
}
