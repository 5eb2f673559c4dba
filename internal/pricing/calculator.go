package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/rohanmehta-dev/vastrakart/pkg/config"
	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// LineItem is the minimal pricing view of a cart item.
type LineItem struct {
	UnitPrice money.Amount
	Quantity  int
}

// LineItemsFromCart projects cart items into pricing inputs.
func LineItemsFromCart(items []types.CartItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, LineItem{
			UnitPrice: money.FromFloat(item.UnitPrice),
			Quantity:  item.Quantity,
		})
	}
	return out
}

// Rates carries the two GST components. Both are computed from the
// subtotal independently, never compounded on each other.
type Rates struct {
	CGSTPercent money.Amount
	SGSTPercent money.Amount
}

// RatesFromConfig lifts the configured percentages into decimals.
func RatesFromConfig(cfg config.TaxConfig) Rates {
	return Rates{
		CGSTPercent: decimal.NewFromFloat(cfg.CGSTPercent),
		SGSTPercent: decimal.NewFromFloat(cfg.SGSTPercent),
	}
}

// Quote is the computed order total breakdown, carried at full precision.
// Rounding to two decimal places happens only when a figure is displayed.
type Quote struct {
	Subtotal       money.Amount
	CGST           money.Amount
	SGST           money.Amount
	Discount       money.Amount
	DeliveryCharge money.Amount
	Total          money.Amount
}

// Compute derives the order totals. It is pure: no side effects, no
// network calls, same inputs always yield the same quote.
//
//	subtotal = sum(unitPrice x quantity)
//	cgst     = subtotal x cgstPercent
//	sgst     = subtotal x sgstPercent
//	discount = subtotal x couponPercent (0 without a coupon)
//	total    = subtotal + cgst + sgst + delivery - discount, floored at zero
func Compute(items []LineItem, coupon *types.Coupon, delivery money.Amount, rates Rates) Quote {
	subtotal := money.Zero
	for _, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
	}

	cgst := money.Percent(subtotal, rates.CGSTPercent)
	sgst := money.Percent(subtotal, rates.SGSTPercent)

	discount := money.Zero
	if coupon != nil {
		discount = money.Percent(subtotal, decimal.NewFromFloat(coupon.DiscountPercent))
	}

	total := subtotal.Add(cgst).Add(sgst).Add(delivery).Sub(discount)

	return Quote{
		Subtotal:       subtotal,
		CGST:           cgst,
		SGST:           sgst,
		Discount:       discount,
		DeliveryCharge: delivery,
		Total:          money.ClampNonNegative(total),
	}
}
