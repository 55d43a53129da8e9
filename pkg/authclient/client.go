package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to the userhub API and keeps its session fresh.
//
// Protected calls transparently survive token expiry: a 401 triggers one
// refresh (coalesced across concurrent calls) and one replay of the original
// request. A second 401 on the replay propagates as is. Login and refresh
// themselves are never intercepted, their 401 means what it says.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	session *SessionManager
	now     func() time.Time
}

// Options tune the client. The zero value works.
type Options struct {
	// HTTPClient to use for all requests. Defaults to one with a sane timeout
	HTTPClient *http.Client

	// Store for session credentials. Defaults to an in-memory store
	Store Store

	// Logger for best-effort failures. Discarded if not set
	Logger *slog.Logger

	// Now allows tests to control the clock
	Now func() time.Time
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8080/api"
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Store == nil {
		opts.Store = NewMemStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		logger:  opts.Logger,
		now:     opts.Now,
	}

	session, err := NewSessionManager(SessionManagerConfig{
		Store:   opts.Store,
		Refresh: c.refreshCall,
		Logger:  opts.Logger,
		Now:     opts.Now,
	})
	if err != nil {
		return nil, err
	}
	c.session = session

	return c, nil
}

// Session exposes the session manager, e.g. to run AutoRefresh
// or to ask IsAuthenticated
func (c *Client) Session() *SessionManager {
	return c.session
}

type authPayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

// Login authenticates and installs the session on success
func (c *Client) Login(ctx context.Context, email string, password string) (User, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var out authPayload
	if err := c.send(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return User{}, err
	}

	session := c.sessionFrom(out)
	c.session.Install(session)
	return session.User, nil
}

// Register creates an account and installs the session on success.
// A password/confirmation mismatch fails locally before any request is sent.
func (c *Client) Register(ctx context.Context, name string, email string, password string, confirmation string) (User, error) {
	if password != confirmation {
		return User{}, &ValidationError{Fields: map[string][]string{
			"password_confirmation": {"The password confirmation does not match"},
		}}
	}

	body := map[string]string{
		"name":                  name,
		"email":                 email,
		"password":              password,
		"password_confirmation": confirmation,
	}

	var out authPayload
	if err := c.send(ctx, http.MethodPost, "/auth/register", "", body, &out); err != nil {
		return User{}, err
	}

	session := c.sessionFrom(out)
	c.session.Install(session)
	return session.User, nil
}

// Logout tells the server to revoke the token, best effort, then clears the
// local session no matter what the server said
func (c *Client) Logout(ctx context.Context) error {
	if token, ok := c.session.Token(); ok {
		if err := c.send(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
			c.logger.Warn("server-side logout failed, clearing session anyway", "error", err)
		}
	}

	c.session.Clear()
	return nil
}

// Profile fetches the authoritative profile and updates the cached snapshot
func (c *Client) Profile(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &u); err != nil {
		return User{}, err
	}

	c.session.SetUser(u)
	return u, nil
}

// RefreshToken forces a refresh episode (or joins the one in flight)
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	return c.session.Refresh(ctx)
}

// UserPage is one page of the user listing
type UserPage struct {
	Data        []User `json:"data"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int64  `json:"total"`
}

func (c *Client) ListUsers(ctx context.Context, page int, perPage int) (UserPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", fmt.Sprint(page))
	}
	if perPage > 0 {
		query.Set("per_page", fmt.Sprint(perPage))
	}

	path := "/users"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out UserPage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	values := url.Values{"query": {query}}

	var out []User
	err := c.do(ctx, http.MethodGet, "/users/search?"+values.Encode(), nil, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	var out struct {
		Data User `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &out)
	return out.Data, err
}

// Stats is the aggregate user statistics the server reports
type Stats struct {
	TotalUsers  int64 `json:"total_users"`
	RecentUsers int64 `json:"recent_users_last_7_days"`
}

func (c *Client) Statistics(ctx context.Context) (Stats, error) {
	var out struct {
		Data Stats `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/users/statistics", nil, &out)
	return out.Data, err
}

// UpdateUserRequest carries a partial update; nil fields stay untouched
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, id int64, arg UpdateUserRequest) (User, error) {
	var out struct {
		Data User `json:"data"`
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), arg, &out)
	if err != nil {
		return User{}, err
	}

	// Keep the snapshot honest when the user edited themselves
	if current, ok := c.session.CurrentUser(); ok && current.ID == out.Data.ID {
		c.session.SetUser(out.Data)
	}
	return out.Data, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// DeleteOwnAccount removes the account and clears the now-useless session
func (c *Client) DeleteOwnAccount(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/users/profile/delete", nil, nil); err != nil {
		return err
	}

	c.session.Clear()
	return nil
}

func (c *Client) ChangePassword(ctx context.Context, current string, newPassword string, confirmation string) error {
	if newPassword != confirmation {
		return &ValidationError{Fields: map[string][]string{
			"new_password_confirmation": {"The password confirmation does not match"},
		}}
	}

	body := map[string]string{
		"current_password":          current,
		"new_password":              newPassword,
		"new_password_confirmation": confirmation,
	}
	return c.do(ctx, http.MethodPost, "/users/change-password", body, nil)
}

// refreshCall is the one network refresh the session manager coordinates
func (c *Client) refreshCall(ctx context.Context) (Session, error) {
	token, ok := c.session.Token()
	if !ok {
		return Session{}, &APIError{StatusCode: http.StatusUnauthorized, Message: "no session to refresh"}
	}

	var out authPayload
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", token, nil, &out); err != nil {
		return Session{}, err
	}

	return c.sessionFrom(out), nil
}

// do sends a protected request with the current token. On 401 it refreshes
// once and replays the request once with the new token. A second 401 of the
// replayed request propagates, there is no second retry.
func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	token, _ := c.session.Token()

	err := c.send(ctx, method, path, token, body, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}

	newToken, err := c.session.Refresh(ctx)
	if err != nil {
		return err
	}

	return c.send(ctx, method, path, newToken, body, out)
}

// send performs one plain HTTP request with no interception whatsoever
func (c *Client) send(ctx context.Context, method string, path string, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return decodeError(resp.StatusCode, data)
}

func (c *Client) sessionFrom(payload authPayload) Session {
	return Session{
		Token:     payload.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
		User:      payload.User,
	}
}

func decodeError(statusCode int, data []byte) error {
	if statusCode == http.StatusUnprocessableEntity {
		var body struct {
			Errors map[string][]string `json:"errors"`
		}
		if err := json.Unmarshal(data, &body); err == nil && len(body.Errors) > 0 {
			return &ValidationError{Fields: body.Errors}
		}
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &body)

	message := body.Error
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &APIError{StatusCode: statusCode, Message: message}
}
