package types

import "time"

// Coupon is a percentage discount code with a validity window and a usage cap.
type Coupon struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent float64   `json:"discount_percent"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	UsageCount      int       `json:"usage_count"`
	UsageLimit      int       `json:"usage_limit"`
}
