package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/repository"
	"github.com/nkiryanov/wordvault/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	arg := repository.CreateUserParams{
		Username:     "nkiryanov",
		DisplayName:  "Nikolai",
		PasswordHash: "hashed-password",
	}

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			user, err := repo.CreateUser(t.Context(), arg)

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, user.ID, "user id should be generated")
			require.Equal(t, arg.Username, user.Username)
			require.Equal(t, arg.DisplayName, user.DisplayName)
			require.Equal(t, arg.PasswordHash, user.HashedPassword)
			require.False(t, user.CreatedAt.IsZero(), "created at should be set")
		})
	})

	t.Run("fail if username taken", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			_, err := repo.CreateUser(t.Context(), arg)
			require.NoError(t, err)

			_, err = repo.CreateUser(t.Context(), arg)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get user by id", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created, err := repo.CreateUser(t.Context(), arg)
			require.NoError(t, err)

			got, err := repo.GetUserByID(t.Context(), created.ID)

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
			require.Equal(t, created.Username, got.Username)
		})
	})

	t.Run("get user by username", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created, err := repo.CreateUser(t.Context(), arg)
			require.NoError(t, err)

			got, err := repo.GetUserByUsername(t.Context(), arg.Username)

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("fail if user not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			_, err := repo.GetUserByID(t.Context(), uuid.New())
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			_, err = repo.GetUserByUsername(t.Context(), "nobody")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
