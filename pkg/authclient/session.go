package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	// How close to expiry a token must be before a proactive refresh kicks in
	DefaultExpiryWindow = 5 * time.Minute

	// How often the background poller checks the token
	DefaultPollInterval = 2 * time.Minute
)

// User is the profile snapshot the server returns
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Session is the client's belief about its current authentication:
// a bearer token, when it stops being valid and a cached profile snapshot.
// The user field is a cache; the server stays authoritative.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

type refreshOutcome struct {
	token string
	err   error
}

// SessionManager owns the credential store: it is the sole writer of the
// session keys and the single place refresh calls are coordinated.
//
// Concurrent refresh triggers are coalesced: exactly one network refresh
// happens per episode, every caller that arrives while it is in flight waits
// for that same outcome, and waiters are released in arrival order.
type SessionManager struct {
	store   Store
	refresh func(ctx context.Context) (Session, error)
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome
}

// SessionManagerConfig configures a SessionManager.
// Store and Refresh are required, everything else has defaults.
type SessionManagerConfig struct {
	// Store holds the session triple
	Store Store

	// Refresh performs the actual network refresh call
	Refresh func(ctx context.Context) (Session, error)

	// Logger for best-effort failures. Discarded if not set
	Logger *slog.Logger

	// Now allows tests to control the clock
	Now func() time.Time
}

func NewSessionManager(cfg SessionManagerConfig) (*SessionManager, error) {
	if cfg.Store == nil {
		return nil, errors.New("store must not be nil")
	}
	if cfg.Refresh == nil {
		return nil, errors.New("refresh func must not be nil")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &SessionManager{
		store:   cfg.Store,
		refresh: cfg.Refresh,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// Install writes the session triple to the store as one unit
func (m *SessionManager) Install(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.installLocked(s)
}

// Clear removes the session triple from the store as one unit
func (m *SessionManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearLocked()
}

// SetUser overwrites the cached profile snapshot, keeping the token as is
func (m *SessionManager) SetUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store.Get(KeyToken); !ok {
		// No token, no session. Do not resurrect a cleared store
		return
	}

	data, err := json.Marshal(u)
	if err != nil {
		m.logger.Warn("failed to encode user snapshot", "error", err)
		return
	}
	m.store.Set(KeyUser, string(data))
}

// Token returns the stored bearer token if any
func (m *SessionManager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.store.Get(KeyToken)
	return token, ok && token != ""
}

// CurrentUser returns the cached profile snapshot if any.
// An empty or unreadable store simply reads as "no user", never an error.
func (m *SessionManager) CurrentUser() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.store.Get(KeyUser)
	if !ok {
		return User{}, false
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, false
	}
	return u, true
}

// IsAuthenticated reports whether a token is present locally.
// It is a liveness hint: the server may still reject the token.
func (m *SessionManager) IsAuthenticated() bool {
	_, ok := m.Token()
	return ok
}

// IsExpired reports whether the token lifetime has passed.
// A session without a recorded expiry counts as expired.
func (m *SessionManager) IsExpired() bool {
	expiresAt, ok := m.expiresAt()
	if !ok {
		return true
	}
	return !m.now().Before(expiresAt)
}

// IsExpiringSoon reports whether now is within the window before expiry.
// The boundary itself counts: at exactly expiresAt-window it is already true.
func (m *SessionManager) IsExpiringSoon(window time.Duration) bool {
	if window <= 0 {
		window = DefaultExpiryWindow
	}

	expiresAt, ok := m.expiresAt()
	if !ok {
		return true
	}
	return !m.now().Before(expiresAt.Add(-window))
}

// Refresh obtains a new token, coalescing concurrent callers into a single
// network call. Every caller of the same episode gets the same outcome.
//
// A rejected refresh clears the session: the server no longer trusts the
// token and keeping it would only produce more rejections. A transport
// failure keeps the session, the server never got to judge it.
func (m *SessionManager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.refreshing {
		// Buffered so an abandoned waiter never blocks the releasing side
		ch := make(chan refreshOutcome, 1)
		m.waiters = append(m.waiters, ch)
		m.mu.Unlock()

		select {
		case out := <-ch:
			return out.token, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	m.refreshing = true
	m.mu.Unlock()

	session, err := m.refresh(ctx)

	m.mu.Lock()
	switch {
	case err == nil:
		m.installLocked(session)
	case errors.Is(err, ErrUnreachable):
		// Keep the session, the failure says nothing about the token
	default:
		m.clearLocked()
	}
	waiters := m.waiters
	m.waiters = nil
	m.refreshing = false
	m.mu.Unlock()

	out := refreshOutcome{token: session.Token, err: err}
	for _, ch := range waiters {
		ch <- out
	}

	return session.Token, err
}

// RefreshIfNeeded refreshes proactively when the token is close to expiry
// but not yet past it. Best effort: failures are logged and swallowed so the
// caller's own flow is never interrupted.
func (m *SessionManager) RefreshIfNeeded(ctx context.Context) {
	if !m.IsAuthenticated() {
		return
	}
	if m.IsExpired() || !m.IsExpiringSoon(DefaultExpiryWindow) {
		return
	}

	if _, err := m.Refresh(ctx); err != nil {
		m.logger.Warn("proactive token refresh failed", "error", err)
	}
}

// AutoRefresh polls RefreshIfNeeded until the context is cancelled.
// It blocks, so run it in its own goroutine. The first check happens
// immediately, not one interval later.
func (m *SessionManager) AutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	m.RefreshIfNeeded(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RefreshIfNeeded(ctx)
		}
	}
}

func (m *SessionManager) installLocked(s Session) {
	data, err := json.Marshal(s.User)
	if err != nil {
		m.logger.Warn("failed to encode user snapshot", "error", err)
		data = []byte("{}")
	}

	m.store.Set(KeyToken, s.Token)
	m.store.Set(KeyUser, string(data))
	m.store.Set(KeyTokenExpiration, strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10))
}

func (m *SessionManager) clearLocked() {
	m.store.Delete(KeyToken)
	m.store.Delete(KeyUser)
	m.store.Delete(KeyTokenExpiration)
}

func (m *SessionManager) expiresAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.store.Get(KeyTokenExpiration)
	if !ok {
		return time.Time{}, false
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
