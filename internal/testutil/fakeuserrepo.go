package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/repository"
)

// FakeUserRepo is an in-memory repository.UserRepo so service and handler
// tests don't need a database container
type FakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		nextID: 1,
		users:  make(map[int64]models.User),
	}
}

func (r *FakeUserRepo) CreateUser(_ context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == arg.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	now := time.Now().Truncate(time.Second)
	user := models.User{
		ID:           r.nextID,
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	r.nextID++

	return user, nil
}

func (r *FakeUserRepo) GetUserByID(_ context.Context, id int64) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r *FakeUserRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (r *FakeUserRepo) ListUsers(_ context.Context, arg repository.ListUsersParams) (repository.UserPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.sorted()
	page := repository.UserPage{
		Page:    arg.Page,
		PerPage: arg.PerPage,
		Total:   int64(len(all)),
		Users:   []models.User{},
	}

	start := (arg.Page - 1) * arg.PerPage
	if start < len(all) {
		end := min(start+arg.PerPage, len(all))
		page.Users = all[start:end]
	}

	return page, nil
}

func (r *FakeUserRepo) SearchUsers(_ context.Context, query string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(query)
	found := []models.User{}
	for _, u := range r.sorted() {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			found = append(found, u)
		}
	}

	return found, nil
}

func (r *FakeUserRepo) UpdateUser(_ context.Context, id int64, arg repository.UpdateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}

	if arg.Email != nil {
		for _, u := range r.users {
			if u.ID != id && u.Email == *arg.Email {
				return models.User{}, apperrors.ErrEmailTaken
			}
		}
		user.Email = *arg.Email
	}
	if arg.Name != nil {
		user.Name = *arg.Name
	}

	user.UpdatedAt = time.Now().Truncate(time.Second)
	r.users[id] = user

	return user, nil
}

func (r *FakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().Truncate(time.Second)
	r.users[id] = user

	return nil
}

func (r *FakeUserRepo) DeleteUser(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(r.users, id)

	return nil
}

func (r *FakeUserRepo) UserStats(_ context.Context, recentSince time.Time) (repository.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := repository.UserStats{TotalUsers: int64(len(r.users))}
	for _, u := range r.users {
		if !u.CreatedAt.Before(recentSince) {
			stats.RecentUsers++
		}
	}

	return stats, nil
}

func (r *FakeUserRepo) sorted() []models.User {
	all := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}
