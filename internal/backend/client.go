package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rohanmehta-dev/vastrakart/pkg/config"
	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
)

// Client is the single HTTP wrapper for the remote commerce backend. It
// attaches the session's bearer token to every request and transparently
// retries exactly once after a token refresh when the backend answers 401.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokens      TokenStore
	refreshSkew time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the backend client.
func NewClient(cfg config.BackendConfig, tokens TokenStore, logg *logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("backend base url required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store required")
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokens:      tokens,
		refreshSkew: cfg.RefreshSkew,
		logg:        logg,
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Authenticated reports whether the session has backend credentials.
func (c *Client) Authenticated(ctx context.Context, sessionID string) (bool, error) {
	pair, err := c.tokens.Get(ctx, sessionID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session tokens")
	}
	return pair != nil, nil
}

// do executes one backend call for the session, refreshing the access
// token at most once: proactively when it is about to expire, or reactively
// on a 401. A second 401 is surfaced as-is.
func (c *Client) do(ctx context.Context, sessionID, method, path string, body, dest any) error {
	pair, err := c.tokens.Get(ctx, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session tokens")
	}

	refreshed := false
	if pair != nil && expiringSoon(pair.AccessToken, c.refreshSkew, c.now()) {
		if pair, err = c.refresh(ctx, sessionID, pair); err != nil {
			return err
		}
		refreshed = true
	}

	status, err := c.execute(ctx, method, path, pair, body, dest)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return nil
	}
	if pair == nil || refreshed {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "backend rejected session credentials")
	}

	if pair, err = c.refresh(ctx, sessionID, pair); err != nil {
		return err
	}
	status, err = c.execute(ctx, method, path, pair, body, dest)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "backend rejected session credentials")
	}
	return nil
}

// execute runs the HTTP exchange. A 401 is reported through the returned
// status so the caller can drive the refresh-and-retry; other non-2xx
// statuses become typed errors.
func (c *Client) execute(ctx context.Context, method, path string, pair *TokenPair, body, dest any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal backend request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if pair != nil {
		httpReq.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute backend request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, statusError(resp.StatusCode, method, path)
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) refresh(ctx context.Context, sessionID string, pair *TokenPair) (*TokenPair, error) {
	var refreshedPair TokenPair
	status, err := c.execute(ctx, http.MethodPost, "/api/v1/auth/refresh",
		nil, map[string]string{"refresh_token": pair.RefreshToken}, &refreshedPair)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token rejected")
	}
	if refreshedPair.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "refresh response missing access token")
	}
	if refreshedPair.RefreshToken == "" {
		refreshedPair.RefreshToken = pair.RefreshToken
	}
	if refreshedPair.UserID == "" {
		refreshedPair.UserID = pair.UserID
	}
	if err := c.tokens.Save(ctx, sessionID, refreshedPair); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refreshed tokens")
	}
	return &refreshedPair, nil
}

func statusError(status int, method, path string) error {
	msg := fmt.Sprintf("backend %s %s failed with status %d", method, path, status)
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	case status == http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, msg)
	case status == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, msg)
	case status >= 400 && status < 500:
		return pkgerrors.New(pkgerrors.CodeValidation, msg)
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
}
