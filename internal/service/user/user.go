package user

import (
	"context"
	"fmt"
	"time"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/repository"
	"userhub/internal/service/auth"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100

	// "recent" in statistics means created within the last week
	recentWindow = 7 * 24 * time.Hour
)

type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
}

func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, page int, perPage int) (repository.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	return s.userRepo.ListUsers(ctx, repository.ListUsersParams{Page: page, PerPage: perPage})
}

func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.userRepo.SearchUsers(ctx, query)
}

func (s *UserService) Statistics(ctx context.Context) (repository.UserStats, error) {
	return s.userRepo.UserStats(ctx, time.Now().Add(-recentWindow))
}

// UpdateUser lets the actor edit their own record only
func (s *UserService) UpdateUser(ctx context.Context, actor models.User, id int64, arg repository.UpdateUserParams) (models.User, error) {
	// Missing records report not found before ownership is judged
	target, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if actor.ID != target.ID {
		return models.User{}, apperrors.ErrNotOwner
	}

	return s.userRepo.UpdateUser(ctx, id, arg)
}

// DeleteUser removes another user's record; own account must go
// through DeleteOwnAccount instead
func (s *UserService) DeleteUser(ctx context.Context, actor models.User, id int64) error {
	target, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.ID == target.ID {
		return apperrors.ErrNotOwner
	}

	return s.userRepo.DeleteUser(ctx, id)
}

func (s *UserService) DeleteOwnAccount(ctx context.Context, actor models.User) error {
	return s.userRepo.DeleteUser(ctx, actor.ID)
}

func (s *UserService) ChangePassword(ctx context.Context, actor models.User, currentPassword string, newPassword string) error {
	if err := s.hasher.Compare(actor.PasswordHash, currentPassword); err != nil {
		return apperrors.ErrPasswordMismatch
	}

	if err := s.hasher.Compare(actor.PasswordHash, newPassword); err == nil {
		return apperrors.ErrPasswordNotChanged
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, actor.ID, hash)
}
