package repository

import (
	"context"
	"time"

	"userhub/internal/models"
)

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
}

type ListUsersParams struct {
	Page    int
	PerPage int
}

// UserPage is one page of the users listing plus paging metadata
type UserPage struct {
	Users   []models.User
	Page    int
	PerPage int
	Total   int64
}

// UpdateUserParams holds partial updates: nil field means "leave as is"
type UpdateUserParams struct {
	Name  *string
	Email *string
}

type UserStats struct {
	TotalUsers  int64
	RecentUsers int64
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the same email exists must return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// List users page by page ordered by id
	ListUsers(ctx context.Context, arg ListUsersParams) (UserPage, error)

	// Search users by name or email substring, case insensitive
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	// Update name or email
	// If the new email belongs to another user must return apperrors.ErrEmailTaken
	UpdateUser(ctx context.Context, id int64, arg UpdateUserParams) (models.User, error)

	// Replace the password hash
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Delete user by id
	// If user not found must return apperrors.ErrUserNotFound
	DeleteUser(ctx context.Context, id int64) error

	// Count all users and those created at or after recentSince
	UserStats(ctx context.Context, recentSince time.Time) (UserStats, error)
}
