package payment

import (
	"context"
	"strings"

	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/razorpay"
)

// RazorpayAPI is the slice of the Razorpay client the adapter needs.
type RazorpayAPI interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// RazorpayAdapter drives the regional-gateway checkout path.
type RazorpayAdapter struct {
	api RazorpayAPI
}

// NewRazorpayAdapter wraps a configured client; a nil client marks the
// provider unavailable rather than panicking at checkout time.
func NewRazorpayAdapter(api RazorpayAPI) *RazorpayAdapter {
	return &RazorpayAdapter{api: api}
}

func (a *RazorpayAdapter) Method() Method {
	return MethodRazorpay
}

func (a *RazorpayAdapter) CreateProviderOrder(ctx context.Context, total money.Amount, receipt string) (*ProviderOrder, error) {
	if a == nil || a.api == nil {
		return nil, newProviderError(MethodRazorpay, ReasonUnavailable, nil)
	}
	order, err := a.api.CreateOrder(ctx, money.Paise(total), "INR", receipt)
	if err != nil {
		return nil, newProviderError(MethodRazorpay, ReasonOrderCreation, err)
	}
	return &ProviderOrder{
		Method:    MethodRazorpay,
		OrderID:   order.ID,
		ClientKey: a.api.KeyID(),
	}, nil
}

// Verify checks the callback signature; the payment id becomes the
// transaction id only when the signature holds.
func (a *RazorpayAdapter) Verify(ctx context.Context, cb Callback) (*Capture, error) {
	if a == nil || a.api == nil {
		return nil, newProviderError(MethodRazorpay, ReasonUnavailable, nil)
	}
	if strings.TrimSpace(cb.ProviderOrderID) == "" || strings.TrimSpace(cb.PaymentID) == "" {
		return nil, newProviderError(MethodRazorpay, ReasonVerification, nil)
	}
	if !a.api.VerifyPaymentSignature(cb.ProviderOrderID, cb.PaymentID, cb.Signature) {
		return nil, newProviderError(MethodRazorpay, ReasonVerification, nil)
	}
	return &Capture{TransactionID: cb.PaymentID}, nil
}
