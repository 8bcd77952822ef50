// Package gotrue is a small client for the hosted auth HTTP API
// (GoTrue-compatible). It covers exactly what the storefront needs:
// sign-up, password login, token refresh, metadata updates and logout.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/yourflock/nekostream/internal/auth"
)

// UserMetadata is stored verbatim on the auth user.
type UserMetadata = auth.UserMetadata

// User is the auth user record.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Session is returned by sign-up (when email confirmation is off),
// login and refresh. AccessToken is empty when the account still needs
// to confirm its email.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// APIError is a non-2xx answer from the auth API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to {baseURL}/auth/v1.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient returns a client for the project at baseURL using the public
// anon key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// SignUp creates an account. The metadata lands in user_metadata.
func (c *Client) SignUp(ctx context.Context, email, password string, meta UserMetadata) (*Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     meta,
	}
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "", body)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "decode signup response")
	}
	if s.AccessToken == "" {
		// Confirmation pending: the API answers with the bare user.
		if err := json.Unmarshal(raw, &s.User); err != nil {
			return nil, errors.Wrap(err, "decode signup user")
		}
	}
	return &s, nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	q := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}
	return c.session(ctx, q, body)
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	q := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	return c.session(ctx, q, body)
}

// UpdateUser replaces the caller's user metadata.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, meta UserMetadata) (*User, error) {
	raw, err := c.do(ctx, http.MethodPut, "/auth/v1/user", nil, accessToken, map[string]interface{}{"data": meta})
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "decode user")
	}
	return &u, nil
}

// SignOut revokes the refresh tokens behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil)
	return err
}

func (c *Client) session(ctx context.Context, q url.Values, body interface{}) (*Session, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, "", body)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, bearer string, body interface{}) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, raw)
	}
	return raw, nil
}

// decodeError understands both the current {"error_code","msg"} shape and
// the OAuth-style {"error","error_description"} one.
func decodeError(status int, raw []byte) *APIError {
	var body struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)

	e := &APIError{Status: status, Code: body.ErrorCode, Message: body.Msg}
	if e.Code == "" {
		e.Code = body.Error
	}
	if e.Message == "" {
		e.Message = body.ErrorDescription
	}
	if e.Message == "" {
		e.Message = body.Message
	}
	if e.Code == "" {
		e.Code = "auth_error"
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
