package money

import "github.com/shopspring/decimal"

// Amount is a rupee amount carried at full precision. Rounding to two
// decimal places happens only at the presentation edge.
type Amount = decimal.Decimal

var Zero = decimal.Zero

// FromFloat converts a float rupee figure coming off a JSON payload.
func FromFloat(v float64) Amount {
	return decimal.NewFromFloat(v)
}

// FromInt converts a whole-rupee figure.
func FromInt(v int64) Amount {
	return decimal.NewFromInt(v)
}

// Percent returns amount x (pct / 100) at full precision.
func Percent(amount Amount, pct Amount) Amount {
	return amount.Mul(pct).Div(decimal.NewFromInt(100))
}

// Display rounds to two decimal places for user-facing output.
func Display(amount Amount) string {
	return amount.Round(2).StringFixed(2)
}

// DisplayFloat rounds to two decimal places and returns a float for JSON
// payloads that expect numbers.
func DisplayFloat(amount Amount) float64 {
	f, _ := amount.Round(2).Float64()
	return f
}

// ClampNonNegative floors an amount at zero.
func ClampNonNegative(amount Amount) Amount {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Paise converts rupees to integer paise, the unit regional gateways bill in.
func Paise(amount Amount) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
