package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/repository"
	"userhub/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper to run tests with its own UserRepo in transaction
	// When test ends rollback
	withRepo := func(t *testing.T, testFunc func(r *UserRepo)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			testFunc(&UserRepo{DB: tx})
		})
	}

	createUser := func(t *testing.T, r *UserRepo, name string, email string) models.User {
		t.Helper()
		user, err := r.CreateUser(t.Context(), repository.CreateUserParams{
			Name:         name,
			Email:        email,
			PasswordHash: "hashedpassword123",
		})
		require.NoError(t, err)
		return user
	}

	t.Run("create user ok", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			user, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Name:         "Alice",
				Email:        "alice@example.com",
				PasswordHash: "hashedpassword123",
			})

			require.NoError(t, err)
			assert.Greater(t, user.ID, int64(0), "ID should be generated")
			assert.Equal(t, "Alice", user.Name)
			assert.Equal(t, "alice@example.com", user.Email)
			assert.Equal(t, "hashedpassword123", user.PasswordHash)
			assert.Nil(t, user.EmailVerifiedAt, "fresh user should not be verified")
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
			assert.WithinDuration(t, time.Now(), user.UpdatedAt, time.Second, "UpdatedAt should be recent")
		})
	})

	t.Run("create user duplicate email fails", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			createUser(t, r, "Alice", "same@example.com")

			_, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Name:         "Another Alice",
				Email:        "same@example.com",
				PasswordHash: "otherhash",
			})
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "if email taken must return well defined error")
		})
	})

	t.Run("get user by id", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			created := createUser(t, r, "Bob", "bob@example.com")

			got, err := r.GetUserByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			_, err := r.GetUserByID(t.Context(), 424242)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("get user by email", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			created := createUser(t, r, "Carol", "carol@example.com")

			got, err := r.GetUserByEmail(t.Context(), "carol@example.com")

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("list users paginated", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			for _, u := range []string{"u1", "u2", "u3", "u4", "u5"} {
				createUser(t, r, u, u+"@example.com")
			}

			page, err := r.ListUsers(t.Context(), repository.ListUsersParams{Page: 2, PerPage: 2})

			require.NoError(t, err)
			assert.Equal(t, int64(5), page.Total)
			assert.Equal(t, 2, page.Page)
			assert.Equal(t, 2, page.PerPage)
			require.Len(t, page.Users, 2)
			assert.Equal(t, "u3", page.Users[0].Name, "second page should start at the third user")
		})
	})

	t.Run("search users by name or email", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			createUser(t, r, "Dave Grohl", "dave@example.com")
			createUser(t, r, "Edith", "edith@grohl.org")
			createUser(t, r, "Frank", "frank@example.com")

			users, err := r.SearchUsers(t.Context(), "grohl")

			require.NoError(t, err)
			require.Len(t, users, 2, "should match name and email case insensitive")
		})
	})

	t.Run("update user partial", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			created := createUser(t, r, "Grace", "grace@example.com")

			newName := "Grace Hopper"
			got, err := r.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{Name: &newName})

			require.NoError(t, err)
			assert.Equal(t, "Grace Hopper", got.Name)
			assert.Equal(t, "grace@example.com", got.Email, "email should be unchanged")
		})
	})

	t.Run("update user email taken", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			createUser(t, r, "Henry", "henry@example.com")
			other := createUser(t, r, "Iris", "iris@example.com")

			takenEmail := "henry@example.com"
			_, err := r.UpdateUser(t.Context(), other.ID, repository.UpdateUserParams{Email: &takenEmail})

			assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
		})
	})

	t.Run("update user not found", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			newName := "Nobody"
			_, err := r.UpdateUser(t.Context(), 424242, repository.UpdateUserParams{Name: &newName})
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("update password", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			created := createUser(t, r, "Jack", "jack@example.com")

			err := r.UpdatePassword(t.Context(), created.ID, "newhash")
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, "newhash", got.PasswordHash)
		})
	})

	t.Run("delete user", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			created := createUser(t, r, "Kate", "kate@example.com")

			err := r.DeleteUser(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = r.GetUserByID(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			err = r.DeleteUser(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "second delete should report missing user")
		})
	})

	t.Run("user stats", func(t *testing.T) {
		withRepo(t, func(r *UserRepo) {
			createUser(t, r, "Leo", "leo@example.com")
			createUser(t, r, "Mia", "mia@example.com")

			stats, err := r.UserStats(t.Context(), time.Now().AddDate(0, 0, -7))

			require.NoError(t, err)
			assert.Equal(t, int64(2), stats.TotalUsers)
			assert.Equal(t, int64(2), stats.RecentUsers, "users created now are recent")

			stats, err = r.UserStats(t.Context(), time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(0), stats.RecentUsers, "nothing created after the cutoff")
		})
	})
}
