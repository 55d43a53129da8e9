package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/repository"
)

type Config struct {
	// Hasher to use during registration or login
	// Defaults to bcrypt
	Hasher PasswordHasher
}

// AuthResult is what a successful login, register or refresh produces
type AuthResult struct {
	Token     models.IssuedToken
	ExpiresIn int64 // seconds, as reported to clients
	User      models.User
}

type AuthService struct {
	token    *TokenManager
	hasher   PasswordHasher
	userRepo repository.UserRepo
}

func NewService(cfg Config, token *TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if token == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	return &AuthService{
		token:    token,
		hasher:   hasher,
		userRepo: userRepo,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, name string, email string, password string) (AuthResult, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return AuthResult{}, err
	}

	return s.issueFor(user)
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (AuthResult, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn comparable time even for unknown emails
		_ = s.hasher.Compare(dummyHash, password)
		return AuthResult{}, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return AuthResult{}, apperrors.ErrInvalidCredentials
	}

	return s.issueFor(user)
}

// Refresh trades the presented token (valid or expired within the refresh
// window) for a new one; the old token id is revoked so it can't be replayed
func (s *AuthService) Refresh(ctx context.Context, raw string) (AuthResult, error) {
	claims, err := s.token.ParseForRefresh(ctx, raw)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.token.Revoke(ctx, claims); err != nil {
		return AuthResult{}, err
	}

	return s.issueFor(user)
}

// Logout revokes the presented token; local client state is not our concern
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := s.token.Parse(ctx, raw)
	if err != nil {
		return err
	}

	return s.token.Revoke(ctx, claims)
}

// Authenticate resolves the request's bearer token into a user
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (models.User, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return models.User{}, err
	}

	claims, err := s.token.Parse(ctx, raw)
	if err != nil {
		return models.User{}, err
	}

	return s.userRepo.GetUserByID(ctx, claims.UserID)
}

// AccessTTL exposes the configured token lifetime
func (s *AuthService) AccessTTL() int64 {
	return int64(s.token.AccessTTL().Seconds())
}

func (s *AuthService) issueFor(user models.User) (AuthResult, error) {
	token, err := s.token.Issue(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return AuthResult{
		Token:     token,
		ExpiresIn: int64(s.token.AccessTTL().Seconds()),
		User:      user,
	}, nil
}

// BearerToken extracts the bearer credential from the Authorization header
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", apperrors.ErrTokenInvalid
	}

	return token, nil
}

// A valid bcrypt hash of nothing useful, compared against on unknown emails
// so login duration does not leak whether the email exists
var dummyHash = func() string {
	h, err := DefaultHasher.Hash("timing-equalizer")
	if err != nil {
		panic(err)
	}
	return h
}()
