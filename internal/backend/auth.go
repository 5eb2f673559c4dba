package backend

import (
	"context"
	"net/http"

	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
)

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Login exchanges credentials for a backend token pair and binds it to the
// storefront session. The user id is returned for order payloads.
func (c *Client) Login(ctx context.Context, sessionID, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	status, err := c.execute(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &resp)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "login response missing tokens")
	}

	pair := TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, UserID: resp.UserID}
	if err := c.tokens.Save(ctx, sessionID, pair); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session tokens")
	}
	return resp.UserID, nil
}

// UserID returns the backend user id bound to the session, or "" for
// guest sessions.
func (c *Client) UserID(ctx context.Context, sessionID string) (string, error) {
	pair, err := c.tokens.Get(ctx, sessionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session tokens")
	}
	if pair == nil {
		return "", nil
	}
	return pair.UserID, nil
}

// Logout drops the session's backend credentials. Guest state is untouched.
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	if err := c.tokens.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session tokens")
	}
	return nil
}
