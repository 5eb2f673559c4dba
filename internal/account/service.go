package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
)

const otpScope = "password_otp"

// BackendAuthAPI is the slice of the backend client the account flows need.
type BackendAuthAPI interface {
	RequestPasswordOTP(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

// Cooldowns gates repeated OTP sends per email.
type Cooldowns interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CooldownKey(scope, id string) string
}

// Service drives the password-reset flow with a resend cooldown so the
// backend's mailer is not hammered by impatient retries.
type Service struct {
	backend  BackendAuthAPI
	cooldown Cooldowns
	resendIn time.Duration
	logg     *logger.Logger
}

// NewService builds the account service.
func NewService(backend BackendAuthAPI, cooldown Cooldowns, resendIn time.Duration, logg *logger.Logger) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend auth api required")
	}
	if cooldown == nil {
		return nil, fmt.Errorf("cooldown store required")
	}
	if resendIn <= 0 {
		resendIn = time.Minute
	}
	return &Service{
		backend:  backend,
		cooldown: cooldown,
		resendIn: resendIn,
		logg:     logg,
	}, nil
}

// SendPasswordOTP requests a one-time code, at most once per cooldown
// window per email. A request inside the window is rejected without
// touching the backend.
func (s *Service) SendPasswordOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	key := s.cooldown.CooldownKey(otpScope, email)

	first, err := s.cooldown.SetNX(ctx, key, "1", s.resendIn)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cooldown check failed")
	}
	if !first {
		return pkgerrors.New(pkgerrors.CodeRateLimit,
			fmt.Sprintf("code already sent, wait %s before requesting another", s.resendIn))
	}

	if err := s.backend.RequestPasswordOTP(ctx, email); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "password otp request failed")
		}
		return err
	}
	return nil
}

// ResetPassword redeems the code. No cooldown applies here; the backend
// owns attempt limits on verification.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return s.backend.ResetPassword(ctx, normalizeEmail(email), otp, newPassword)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
