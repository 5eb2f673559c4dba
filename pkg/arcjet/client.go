package arcjet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
)

const defaultBaseURL = "https://decide.arcjet.com"

var errAPIKeyRequired = errors.New("arcjet api key is required")

// Denial reasons reported by the decision API.
const (
	ReasonInvalidEmail = "invalid_email"
	ReasonDisposable   = "disposable_email"
	ReasonNoMXRecords  = "no_mx_records"
	ReasonBot          = "bot_detected"
	ReasonRateLimited  = "rate_limited"
)

// Client wraps the fraud/abuse decision API gating checkout.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
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

// WithBaseURL overrides the configured decision API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the decision client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Decision is the normalized verdict for one email.
type Decision struct {
	Allowed bool
	Reason  string
}

type decideRequest struct {
	Email string `json:"email"`
	IP    string `json:"ip,omitempty"`
}

type decideResponse struct {
	Conclusion string `json:"conclusion"`
	Reason     string `json:"reason"`
}

// ProtectEmail asks the decision API whether the email may proceed to
// checkout. A non-2xx response is a dependency error, not a denial.
func (c *Client) ProtectEmail(ctx context.Context, email, clientIP string) (*Decision, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "arcjet client not configured")
	}
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	payload, err := json.Marshal(decideRequest{Email: email, IP: clientIP})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal decide request")
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/v1/decide"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build decide request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute decide request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("decide request failed with status %d", resp.StatusCode))
	}

	var decoded decideResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode decide response")
	}

	return &Decision{
		Allowed: strings.EqualFold(decoded.Conclusion, "ALLOW"),
		Reason:  decoded.Reason,
	}, nil
}
