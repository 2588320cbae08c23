package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"codetracker/internal/models"
)

// Sentinel errors the session layer branches on.
var (
	// ErrUnauthorized means the token was missing, invalid, or expired;
	// the caller must re-authenticate.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller tried to act on another user's data.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the record does not exist or is not owned.
	ErrNotFound = errors.New("not found")
)

// Client talks to the CodeTracker backend. The token provider is called
// per request so a refreshed session takes effect immediately.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider func() string
}

func New(baseURL string, timeout time.Duration, tokenProvider func() string) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: timeout},
		tokenProvider: tokenProvider,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Session *models.Session `json:"session,omitempty"`
}

// SignUp registers an account and returns the fresh session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return c.postSession(ctx, "/api/auth/signup", credentialsRequest{Email: email, Password: password})
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return c.postSession(ctx, "/api/auth/signin", credentialsRequest{Email: email, Password: password})
}

// Refresh reconstructs a session from a persisted refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	return c.postSession(ctx, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) postSession(ctx context.Context, path string, body any) (*models.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Session == nil {
		return nil, fmt.Errorf("auth failed: %s", resp.Error)
	}
	return resp.Session, nil
}

type saveRequest struct {
	Problem models.SavedProblem `json:"problem"`
}

// SaveResponse is the POST /api/problems result. AlreadyExists marks the
// duplicate-save success path.
type SaveResponse struct {
	Success       bool                 `json:"success"`
	Error         string               `json:"error,omitempty"`
	AlreadyExists bool                 `json:"already_exists,omitempty"`
	Problem       *models.SavedProblem `json:"problem,omitempty"`
}

// SaveProblem pushes a record to the backend. A duplicate (user, url) is
// reported via AlreadyExists, not as an error.
func (c *Client) SaveProblem(ctx context.Context, problem models.SavedProblem) (*SaveResponse, error) {
	var resp SaveResponse
	if err := c.do(ctx, http.MethodPost, "/api/problems", saveRequest{Problem: problem}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("save rejected: %s", resp.Error)
	}
	return &resp, nil
}

type checkResponse struct {
	Exists bool `json:"exists"`
}

// CheckExists asks whether the caller already saved the URL server-side.
func (c *Client) CheckExists(ctx context.Context, url string) (bool, error) {
	var resp checkResponse
	err := c.do(ctx, http.MethodPost, "/api/problems/check", map[string]string{"url": url}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

type listResponse struct {
	Success  bool                  `json:"success"`
	Problems []models.SavedProblem `json:"problems"`
}

// ListProblems returns the caller's records, newest first. limit <= 0
// means no limit.
func (c *Client) ListProblems(ctx context.Context, limit int) ([]models.SavedProblem, error) {
	path := "/api/problems"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Problems, nil
}

// ProblemPatch carries the two mutable record fields.
type ProblemPatch struct {
	Completed *bool   `json:"completed,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type problemResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Problem *models.SavedProblem `json:"problem,omitempty"`
}

// UpdateProblem patches completed/notes on an owned record.
func (c *Client) UpdateProblem(ctx context.Context, id string, patch ProblemPatch) (*models.SavedProblem, error) {
	var resp problemResponse
	if err := c.do(ctx, http.MethodPatch, "/api/problems/"+id, patch, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Problem == nil {
		return nil, fmt.Errorf("update failed: %s", resp.Error)
	}
	return resp.Problem, nil
}

// DeleteProblem removes an owned record.
func (c *Client) DeleteProblem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/problems/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
