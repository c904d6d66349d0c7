package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/repository"
	"github.com/nkiryanov/wordvault/internal/testutil"
)

func Test_StorageInTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	storage := NewStorage(pg.Pool)

	t.Run("commits when fn succeeds", func(t *testing.T) {
		err := storage.InTx(t.Context(), func(s *Storage) error {
			_, err := s.User().CreateUser(t.Context(), repository.CreateUserParams{
				Username:     "committed",
				PasswordHash: "hash",
			})
			return err
		})
		require.NoError(t, err)

		_, err = storage.User().GetUserByUsername(t.Context(), "committed")
		require.NoError(t, err, "user created inside the tx should be visible after commit")
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		boom := errors.New("boom")

		err := storage.InTx(t.Context(), func(s *Storage) error {
			_, err := s.User().CreateUser(t.Context(), repository.CreateUserParams{
				Username:     "rolled-back",
				PasswordHash: "hash",
			})
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom, "fn error should be returned as is")

		_, err = storage.User().GetUserByUsername(t.Context(), "rolled-back")
		require.ErrorIs(t, err, apperrors.ErrUserNotFound, "rolled back user should not exist")
	})
}
