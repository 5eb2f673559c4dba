package backend

import (
	"context"
	"net/http"

	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
)

// RequestPasswordOTP asks the backend to mail a one-time code to the
// address. The endpoint is unauthenticated.
func (c *Client) RequestPasswordOTP(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	status, err := c.execute(ctx, http.MethodPost, "/api/v1/auth/forgot-password", nil, body, nil)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no account for that email")
	}
	return nil
}

// ResetPassword redeems a one-time code for a new password.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	body := map[string]string{"email": email, "otp": otp, "password": newPassword}
	status, err := c.execute(ctx, http.MethodPost, "/api/v1/auth/reset-password", nil, body, nil)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired code")
	}
	return nil
}
