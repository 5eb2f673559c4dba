package pricing

import (
	"errors"
	"time"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// Distinct rejection reasons so the UI can say exactly why a code failed.
var (
	ErrCouponNotFound  = errors.New("invalid coupon code")
	ErrCouponInactive  = errors.New("coupon is expired or not yet active")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
)

// ValidateCoupon decides whether the submitted code may be applied right
// now. The match is case-sensitive and exact. It is cheap enough to run
// again immediately before order submission.
func ValidateCoupon(coupons []types.Coupon, code string, now time.Time) (*types.Coupon, error) {
	var match *types.Coupon
	for i := range coupons {
		if coupons[i].Code == code {
			match = &coupons[i]
			break
		}
	}
	if match == nil {
		return nil, ErrCouponNotFound
	}
	if now.Before(match.StartDate) || now.After(match.EndDate) {
		return nil, ErrCouponInactive
	}
	if match.UsageCount >= match.UsageLimit {
		return nil, ErrCouponExhausted
	}
	return match, nil
}
