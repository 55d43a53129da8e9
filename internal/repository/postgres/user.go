package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, name, email, email_verified_at, password_hash, created_at, updated_at
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, arg.Name, arg.Email, arg.PasswordHash)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, name, email, email_verified_at, password_hash, created_at, updated_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, name, email, email_verified_at, password_hash, created_at, updated_at
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const listUsers = `-- name: ListUsers
SELECT id, name, email, email_verified_at, password_hash, created_at, updated_at
FROM users
ORDER BY id
LIMIT $1 OFFSET $2
`

const countUsers = `-- name: CountUsers
SELECT count(*) FROM users
`

func (r *UserRepo) ListUsers(ctx context.Context, arg repository.ListUsersParams) (repository.UserPage, error) {
	page := repository.UserPage{Page: arg.Page, PerPage: arg.PerPage}

	rows, _ := r.DB.Query(ctx, listUsers, arg.PerPage, (arg.Page-1)*arg.PerPage)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return page, fmt.Errorf("db error: %w", err)
	}

	err = r.DB.QueryRow(ctx, countUsers).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("db error: %w", err)
	}

	page.Users = users
	return page, nil
}

const searchUsers = `-- name: SearchUsers
SELECT id, name, email, email_verified_at, password_hash, created_at, updated_at
FROM users
WHERE name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
ORDER BY id
`

func (r *UserRepo) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, searchUsers, query)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET name = coalesce($2, name),
    email = coalesce($3, email),
    updated_at = now()
WHERE id = $1
RETURNING id, name, email, email_verified_at, password_hash, created_at, updated_at
`

func (r *UserRepo) UpdateUser(ctx context.Context, id int64, arg repository.UpdateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateUser, id, arg.Name, arg.Email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrEmailTaken
		}

		return user, fmt.Errorf("db error: %w", err)
	}
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET password_hash = $2, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.DB.Exec(ctx, updatePassword, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const userStats = `-- name: UserStats
SELECT count(*), count(*) FILTER (WHERE created_at >= $1)
FROM users
`

func (r *UserRepo) UserStats(ctx context.Context, recentSince time.Time) (repository.UserStats, error) {
	var stats repository.UserStats

	err := r.DB.QueryRow(ctx, userStats, recentSince).Scan(&stats.TotalUsers, &stats.RecentUsers)
	if err != nil {
		return stats, fmt.Errorf("db error: %w", err)
	}

	return stats, nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerifiedAt, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
