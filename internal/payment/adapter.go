package payment

import (
	"context"
	"fmt"

	"github.com/rohanmehta-dev/vastrakart/pkg/money"
)

// Method tags the two supported payment providers. The orchestrator never
// branches on the tag beyond picking an adapter.
type Method string

const (
	MethodPayPal   Method = "paypal"
	MethodRazorpay Method = "razorpay"
)

// Failure reasons surfaced to the user as distinct messages.
const (
	ReasonUnavailable   = "provider_unavailable"
	ReasonOrderCreation = "order_creation_failed"
	ReasonVerification  = "verification_failed"
)

// ProviderError is a payment failure with the reason preserved for
// messaging and metrics.
type ProviderError struct {
	Provider Method
	Reason   string
	cause    error
}

func (e *ProviderError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s payment failed (%s): %v", e.Provider, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s payment failed (%s)", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

func newProviderError(provider Method, reason string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Reason: reason, cause: cause}
}

// ProviderOrder is a provider-side order/intent sized to the computed
// total, created before the buyer approves payment.
type ProviderOrder struct {
	Method  Method `json:"method"`
	OrderID string `json:"order_id"`
	// ClientKey is the public key the browser widget needs; empty when
	// the provider does not use one.
	ClientKey string `json:"client_key,omitempty"`
}

// Callback is the provider's payment-success payload. The adapter is the
// sole authority on whether it actually represents a captured payment.
type Callback struct {
	ProviderOrderID string `json:"provider_order_id"`
	PaymentID       string `json:"payment_id,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

// Capture is a verified payment.
type Capture struct {
	TransactionID string
}

// Adapter is the uniform three-call provider contract.
type Adapter interface {
	Method() Method
	CreateProviderOrder(ctx context.Context, total money.Amount, receipt string) (*ProviderOrder, error)
	Verify(ctx context.Context, cb Callback) (*Capture, error)
}

// Select returns the adapter for the requested method.
func Select(adapters []Adapter, method Method) (Adapter, error) {
	for _, adapter := range adapters {
		if adapter.Method() == method {
			return adapter, nil
		}
	}
	return nil, fmt.Errorf("unsupported payment method %q", method)
}
