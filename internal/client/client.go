package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/elskow/authflow/internal/api"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A cookie jar is added when
// the given client has none, since the session lives in a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) Signup(ctx context.Context, st *State, email, password, name string) error {
	st.begin()
	resp, err := c.post(ctx, api.AuthSignup, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	if err != nil {
		st.failed(messageOr(err, "Error signup"))
		return err
	}
	st.authenticated(resp.User)
	return nil
}

func (c *Client) VerifyEmail(ctx context.Context, st *State, code string) (*User, error) {
	st.begin()
	resp, err := c.post(ctx, api.AuthVerifyEmail, map[string]string{"code": code})
	if err != nil {
		st.failed(messageOr(err, "Error verifying email"))
		return nil, err
	}
	st.authenticated(resp.User)
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, st *State, email, password string) error {
	st.begin()
	resp, err := c.post(ctx, api.AuthLogin, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		st.failed(messageOr(err, "Error login"))
		return err
	}
	st.authenticated(resp.User)
	return nil
}

func (c *Client) Logout(ctx context.Context, st *State) error {
	st.begin()
	if _, err := c.post(ctx, api.AuthLogout, nil); err != nil {
		st.failed("Error logout")
		return err
	}
	st.User = nil
	st.IsAuthenticated = false
	st.IsLoading = false
	return nil
}

// CheckAuth asks the server whether the stored cookie is still a session.
// A rejection only clears the state; it is not surfaced as a state error.
func (c *Client) CheckAuth(ctx context.Context, st *State) error {
	st.IsCheckingAuth = true
	st.Error = ""

	resp, err := c.do(ctx, http.MethodGet, api.AuthCheckAuth, nil)
	st.IsCheckingAuth = false
	if err != nil {
		st.User = nil
		st.IsAuthenticated = false
		return err
	}
	st.User = resp.User
	st.IsAuthenticated = true
	return nil
}

func (c *Client) ForgotPassword(ctx context.Context, st *State, email string) error {
	st.begin()
	st.Message = ""
	resp, err := c.post(ctx, api.AuthForgotPassword, map[string]string{"email": email})
	if err != nil {
		st.failed(messageOr(err, "Error sending reset password email"))
		return err
	}
	st.Message = resp.Message
	st.IsLoading = false
	return nil
}

func (c *Client) ResetPassword(ctx context.Context, st *State, token, password string) error {
	st.begin()
	st.Message = ""
	path := strings.Replace(api.AuthResetPassword, ":token", url.PathEscape(token), 1)
	resp, err := c.post(ctx, path, map[string]string{"password": password})
	if err != nil {
		st.failed(messageOr(err, "Error resetting password"))
		return err
	}
	st.Message = resp.Message
	st.IsLoading = false
	return nil
}

// Cookies returns the session cookies held for the server, so a caller can
// persist them between runs.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.endpoint(""))
}

func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.endpoint(""), cookies)
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = u.Path + api.AuthPrefix + path
	return &u
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path).String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var parsed response
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		if res.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{StatusCode: res.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: res.StatusCode, Message: parsed.Message}
	}
	return &parsed, nil
}

func messageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
