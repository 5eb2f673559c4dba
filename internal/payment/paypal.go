package payment

import (
	"context"
	"strings"

	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/paypal"
)

// PayPalAPI is the slice of the PayPal client the adapter needs.
type PayPalAPI interface {
	CreateOrder(ctx context.Context, value, currency string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}

// PayPalAdapter drives the card-network checkout path.
type PayPalAdapter struct {
	api PayPalAPI
}

// NewPayPalAdapter wraps a configured client; a nil client marks the
// provider unavailable rather than panicking at checkout time.
func NewPayPalAdapter(api PayPalAPI) *PayPalAdapter {
	return &PayPalAdapter{api: api}
}

func (a *PayPalAdapter) Method() Method {
	return MethodPayPal
}

func (a *PayPalAdapter) CreateProviderOrder(ctx context.Context, total money.Amount, receipt string) (*ProviderOrder, error) {
	if a == nil || a.api == nil {
		return nil, newProviderError(MethodPayPal, ReasonUnavailable, nil)
	}
	order, err := a.api.CreateOrder(ctx, money.Display(total), "INR")
	if err != nil {
		return nil, newProviderError(MethodPayPal, ReasonOrderCreation, err)
	}
	return &ProviderOrder{Method: MethodPayPal, OrderID: order.ID}, nil
}

// Verify captures the approved order; only a COMPLETED capture counts as
// payment success.
func (a *PayPalAdapter) Verify(ctx context.Context, cb Callback) (*Capture, error) {
	if a == nil || a.api == nil {
		return nil, newProviderError(MethodPayPal, ReasonUnavailable, nil)
	}
	if strings.TrimSpace(cb.ProviderOrderID) == "" {
		return nil, newProviderError(MethodPayPal, ReasonVerification, nil)
	}

	captured, err := a.api.CaptureOrder(ctx, cb.ProviderOrderID)
	if err != nil {
		return nil, newProviderError(MethodPayPal, ReasonVerification, err)
	}
	if captured.Status != paypal.StatusCompleted {
		return nil, newProviderError(MethodPayPal, ReasonVerification, nil)
	}

	transactionID := captured.CaptureID
	if transactionID == "" {
		transactionID = captured.OrderID
	}
	return &Capture{TransactionID: transactionID}, nil
}
