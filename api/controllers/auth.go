package controllers

import (
	"net/http"

	"github.com/rohanmehta-dev/vastrakart/api/middleware"
	"github.com/rohanmehta-dev/vastrakart/api/responses"
	"github.com/rohanmehta-dev/vastrakart/api/validators"
	"github.com/rohanmehta-dev/vastrakart/internal/account"
	"github.com/rohanmehta-dev/vastrakart/internal/backend"
	cartsvc "github.com/rohanmehta-dev/vastrakart/internal/cart"
	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,min=4,max=8"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthLogin signs the session in against the backend, then migrates any
// guest cart items. A partial migration does not fail the login; the
// response reports it so the client can retry.
func AuthLogin(client *backend.Client, carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session missing"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := client.Login(r.Context(), sessionID, payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartSync := "complete"
		if _, err := carts.OnLogin(r.Context(), sessionID); err != nil {
			cartSync = "partial"
			if logg != nil {
				logg.Warn(r.Context(), "guest cart migration incomplete after login")
			}
		}

		responses.WriteSuccess(w, map[string]string{
			"user_id":   userID,
			"cart_sync": cartSync,
		})
	}
}

// AuthLogout drops the session's backend credentials and forgets its
// in-memory cart. Guest-persisted items are untouched.
func AuthLogout(client *backend.Client, carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := client.Logout(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		carts.Evict(sessionID)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthForgotPassword sends a reset code, rate limited per email.
func AuthForgotPassword(svc *account.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload forgotPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SendPasswordOTP(r.Context(), payload.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "otp_sent"})
	}
}

// AuthResetPassword redeems a reset code for a new password.
func AuthResetPassword(svc *account.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload resetPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ResetPassword(r.Context(), payload.Email, payload.OTP, payload.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "password_reset"})
	}
}
