package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/repository"
	"userhub/internal/service/auth"
	"userhub/internal/testutil"
)

func seedUser(t *testing.T, repo *testutil.FakeUserRepo, name string, email string, password string) models.User {
	t.Helper()

	hash, err := auth.DefaultHasher.Hash(password)
	require.NoError(t, err)

	user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return user
}

func Test_UserService(t *testing.T) {
	t.Parallel()

	t.Run("list defaults and caps", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		seedUser(t, repo, "Alice", "alice@example.com", "secret1")

		page, err := s.ListUsers(t.Context(), 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page, "page below 1 should default to 1")
		assert.Equal(t, defaultPerPage, page.PerPage)

		page, err = s.ListUsers(t.Context(), 1, 100500)
		require.NoError(t, err)
		assert.Equal(t, maxPerPage, page.PerPage, "per_page should be capped")
	})

	t.Run("update own record ok", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")

		newName := "Alice Cooper"
		updated, err := s.UpdateUser(t.Context(), actor, actor.ID, repository.UpdateUserParams{Name: &newName})

		require.NoError(t, err)
		assert.Equal(t, "Alice Cooper", updated.Name)
	})

	t.Run("update other record forbidden", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")
		other := seedUser(t, repo, "Bob", "bob@example.com", "secret2")

		newName := "Hacked"
		_, err := s.UpdateUser(t.Context(), actor, other.ID, repository.UpdateUserParams{Name: &newName})

		assert.ErrorIs(t, err, apperrors.ErrNotOwner)
	})

	t.Run("update missing record reports not found", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")

		newName := "Nobody"
		_, err := s.UpdateUser(t.Context(), actor, 424242, repository.UpdateUserParams{Name: &newName})

		assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "not found wins over ownership")
	})

	t.Run("delete other user ok", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")
		other := seedUser(t, repo, "Bob", "bob@example.com", "secret2")

		err := s.DeleteUser(t.Context(), actor, other.ID)
		require.NoError(t, err)

		_, err = repo.GetUserByID(t.Context(), other.ID)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("delete own account via id forbidden", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")

		err := s.DeleteUser(t.Context(), actor, actor.ID)

		assert.ErrorIs(t, err, apperrors.ErrNotOwner, "own account goes through DeleteOwnAccount")
	})

	t.Run("delete own account", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")

		err := s.DeleteOwnAccount(t.Context(), actor)
		require.NoError(t, err)

		_, err = repo.GetUserByID(t.Context(), actor.ID)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("change password", func(t *testing.T) {
		repo := testutil.NewFakeUserRepo()
		s := NewService(nil, repo)
		actor := seedUser(t, repo, "Alice", "alice@example.com", "secret1")

		t.Run("wrong current password", func(t *testing.T) {
			err := s.ChangePassword(t.Context(), actor, "wrong", "newsecret")
			assert.ErrorIs(t, err, apperrors.ErrPasswordMismatch)
		})

		t.Run("same password rejected", func(t *testing.T) {
			err := s.ChangePassword(t.Context(), actor, "secret1", "secret1")
			assert.ErrorIs(t, err, apperrors.ErrPasswordNotChanged)
		})

		t.Run("ok", func(t *testing.T) {
			err := s.ChangePassword(t.Context(), actor, "secret1", "newsecret")
			require.NoError(t, err)

			stored, err := repo.GetUserByID(t.Context(), actor.ID)
			require.NoError(t, err)
			assert.NoError(t, auth.DefaultHasher.Compare(stored.PasswordHash, "newsecret"))
		})
	})
}
