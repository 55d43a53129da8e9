package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"userhub/internal/apperrors"
	"userhub/internal/models"
	"userhub/internal/tokenstore"
)

const (
	defaultAccessTokenTTL = 60 * time.Minute
	defaultSigningMethod  = "HS256"

	// How long after issue an expired token is still accepted for refresh
	defaultRefreshWindow = 14 * 24 * time.Hour
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Token manager config with sensible defaults
type TokenManagerConfig struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access token lifetime and refresh window
	// If not set then default is used
	AccessTTL     time.Duration
	RefreshWindow time.Duration
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	accessTTL     time.Duration
	refreshWindow time.Duration

	// Store of revoked token ids
	revoked tokenstore.Store
}

func NewTokenManager(cfg TokenManagerConfig, revoked tokenstore.Store) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if revoked == nil {
		return nil, errors.New("revoked token store must not be nil")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshWindow == 0 {
		cfg.RefreshWindow = defaultRefreshWindow
	}

	return &TokenManager{
		key:           cfg.SecretKey,
		alg:           jwt.GetSigningMethod(cfg.Alg),
		accessTTL:     cfg.AccessTTL,
		refreshWindow: cfg.RefreshWindow,
		revoked:       revoked,
	}, nil
}

// AccessTTL reports the configured token lifetime, e.g. for 'expires_in' responses
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Issue signs a new access token for the user
func (m *TokenManager) Issue(user models.User) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: user.ID,
		},
	)
	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse validates the access token and checks it was not revoked
func (m *TokenManager) Parse(ctx context.Context, raw string) (AccessTokenClaims, error) {
	claims := AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, fmt.Errorf("token parse error: %w", apperrors.ErrTokenExpired)
	default:
		return claims, fmt.Errorf("token parse error: %w", apperrors.ErrTokenInvalid)
	}

	if err := m.checkNotRevoked(ctx, claims); err != nil {
		return claims, err
	}

	return claims, nil
}

// ParseForRefresh validates the token but tolerates expiry within the
// refresh window, so a client may trade a just-expired token for a new one
func (m *TokenManager) ParseForRefresh(ctx context.Context, raw string) (AccessTokenClaims, error) {
	claims := AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		if claims.IssuedAt == nil || time.Now().After(claims.IssuedAt.Add(m.refreshWindow)) {
			return claims, fmt.Errorf("token outside refresh window: %w", apperrors.ErrTokenExpired)
		}
	default:
		return claims, fmt.Errorf("token parse error: %w", apperrors.ErrTokenInvalid)
	}

	if err := m.checkNotRevoked(ctx, claims); err != nil {
		return claims, err
	}

	return claims, nil
}

// Revoke remembers the token id until the token would leave the refresh window anyway
func (m *TokenManager) Revoke(ctx context.Context, claims AccessTokenClaims) error {
	ttl := m.refreshWindow
	if claims.IssuedAt != nil {
		ttl = time.Until(claims.IssuedAt.Add(m.refreshWindow))
	}

	err := m.revoked.Revoke(ctx, claims.ID, ttl)
	if err != nil {
		return fmt.Errorf("error while revoking token. Err: %w", err)
	}

	return nil
}

func (m *TokenManager) checkNotRevoked(ctx context.Context, claims AccessTokenClaims) error {
	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("error while checking token revocation. Err: %w", err)
	}
	if revoked {
		return apperrors.ErrTokenRevoked
	}

	return nil
}
