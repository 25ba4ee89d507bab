// Package client is a Go SDK for the mediahub auth API.
//
// SESSION MODEL:
// The server hands out two credentials. The short-lived access token goes
// into an Authorization Bearer header on every protected request; the
// Client keeps it in a TokenStore. The long-lived refresh token arrives as
// an HttpOnly cookie; the Client's cookie jar carries it and only the
// /auth/refresh endpoint ever consumes it.
//
// RETRY DISCIPLINE:
// When a protected request comes back 401, the Client refreshes the access
// token once and replays the original request once. A second 401, or a
// failed refresh, ends the session: the token store is cleared and
// ErrSessionExpired is returned. Requests to the auth endpoints themselves
// are never retried, so a dead refresh token cannot loop.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// ErrSessionExpired is returned when the access token was rejected and
// could not be refreshed. The caller should log in again.
var ErrSessionExpired = errors.New("client: session expired")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.StatusCode, e.Message)
}

// User mirrors the server's user representation.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"userName"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Username string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

// Client talks to a mediahub server. Create one with New; the zero value
// is not usable. Safe for concurrent use to the extent the TokenStore is.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenStore replaces the default in-memory token store, e.g. with a
// FileStore so the session survives restarts.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is
// added when the given client has none, since the refresh flow depends on
// one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  &MemoryStore{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	return c, nil
}

// =========================================================================
// ACCOUNT
// =========================================================================

// Register creates an account and starts a session: the returned access
// token is stored and the refresh cookie lands in the jar.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return c.startSession(ctx, "/api/v1/users/register", in)
}

// Login authenticates and starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.startSession(ctx, "/api/v1/users/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Logout ends the session on the server and clears the stored token.
func (c *Client) Logout(ctx context.Context) error {
	// Auth route: no retry. The server always answers success.
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, false); err != nil {
		return err
	}
	return c.tokens.Clear()
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var res struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &res, true); err != nil {
		return nil, err
	}
	return res.User, nil
}

// AllUsers lists every registered user.
func (c *Client) AllUsers(ctx context.Context) ([]User, error) {
	var res struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/allusers", nil, &res, true); err != nil {
		return nil, err
	}
	return res.Users, nil
}

// UpdateUser patches profile fields; empty fields keep their value.
func (c *Client) UpdateUser(ctx context.Context, id string, in RegisterInput) (*User, error) {
	var res struct {
		User *User `json:"user"`
	}
	body := map[string]string{
		"userName": in.Username,
		"fullName": in.FullName,
		"email":    in.Email,
		"avatar":   in.Avatar,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/users/update/"+id, body, &res, true); err != nil {
		return nil, err
	}
	return res.User, nil
}

// =========================================================================
// PASSWORD RESET
// =========================================================================

// ForgotPassword asks the server to email a reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/forgotPassword",
		map[string]string{"email": email}, nil, false)
}

// VerifyResetCode checks an emailed code without consuming it.
func (c *Client) VerifyResetCode(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/verify-reset-code",
		map[string]string{"email": email, "code": code}, nil, false)
}

// ResetPassword completes the reset with a new password.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/reset-password",
		map[string]string{"email": email, "code": code, "newPassword": newPassword}, nil, false)
}

// =========================================================================
// TRANSPORT
// =========================================================================

// startSession posts to a login-like endpoint and stores the returned
// access token.
func (c *Client) startSession(ctx context.Context, path string, body interface{}) (*User, error) {
	var res struct {
		AccessToken string `json:"accessToken"`
		User        *User  `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &res, false); err != nil {
		return nil, err
	}
	if err := c.tokens.Set(res.AccessToken); err != nil {
		return nil, err
	}
	return res.User, nil
}

// do runs one request. protected selects the retry-on-401 behavior: a
// protected request gets exactly one refresh-and-replay; anything else
// fails straight through.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, protected bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
	}

	err := c.roundTrip(ctx, method, path, payload, out)
	var apiErr *APIError
	if err == nil || !protected || !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}

	if refreshErr := c.refresh(ctx); refreshErr != nil {
		_ = c.tokens.Clear()
		return ErrSessionExpired
	}

	// one replay with the fresh token, then whatever happens happens
	err = c.roundTrip(ctx, method, path, payload, out)
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		_ = c.tokens.Clear()
		return ErrSessionExpired
	}
	return err
}

// roundTrip sends one HTTP request and decodes the JSON response into out.
// Non-2xx responses become *APIError.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Get()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errRes struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errRes)
		if errRes.Message == "" {
			errRes.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errRes.Message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}
	return nil
}

// refresh exchanges the refresh cookie for a new access token and stores
// it. The request carries no bearer header; the cookie jar does the work.
func (c *Client) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/refresh", nil)
	if err != nil {
		return fmt.Errorf("client: building refresh request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: refreshing token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: refresh rejected with status %d", resp.StatusCode)
	}

	var res struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("client: decoding refresh response: %w", err)
	}
	if res.AccessToken == "" {
		return errors.New("client: refresh response had no access token")
	}
	return c.tokens.Set(res.AccessToken)
}
