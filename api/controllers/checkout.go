package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/rohanmehta-dev/vastrakart/api/middleware"
	"github.com/rohanmehta-dev/vastrakart/api/responses"
	"github.com/rohanmehta-dev/vastrakart/api/validators"
	checkoutsvc "github.com/rohanmehta-dev/vastrakart/internal/checkout"
	"github.com/rohanmehta-dev/vastrakart/internal/payment"
	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

type submitEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type selectAddressRequest struct {
	AddressID string `json:"address_id" validate:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,min=3,max=32"`
}

type startPaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=paypal razorpay"`
}

type paymentCallbackRequest struct {
	ProviderOrderID string `json:"provider_order_id" validate:"required"`
	PaymentID       string `json:"payment_id,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

type retrySubmissionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

type quoteView struct {
	Subtotal         float64 `json:"subtotal"`
	CGST             float64 `json:"cgst"`
	SGST             float64 `json:"sgst"`
	Discount         float64 `json:"discount"`
	DeliveryCharge   float64 `json:"delivery_charge"`
	Total            float64 `json:"total"`
	DeliveryAdvisory string  `json:"delivery_advisory,omitempty"`
	CourierName      string  `json:"courier_name,omitempty"`
	EstimatedDays    string  `json:"estimated_days,omitempty"`
}

type checkoutView struct {
	State           string          `json:"state"`
	Email           string          `json:"email,omitempty"`
	Addresses       []types.Address `json:"addresses,omitempty"`
	SelectedAddress string          `json:"selected_address,omitempty"`
	Coupon          *types.Coupon   `json:"coupon,omitempty"`
	Quote           *quoteView      `json:"quote,omitempty"`
}

func newCheckoutView(status *checkoutsvc.Status, withQuote bool) checkoutView {
	view := checkoutView{
		State:           string(status.State),
		Email:           status.Email,
		Addresses:       status.Addresses,
		SelectedAddress: status.SelectedAddress,
		Coupon:          status.Coupon,
	}
	if withQuote {
		quote := &quoteView{
			Subtotal:       money.DisplayFloat(status.Quote.Subtotal),
			CGST:           money.DisplayFloat(status.Quote.CGST),
			SGST:           money.DisplayFloat(status.Quote.SGST),
			Discount:       money.DisplayFloat(status.Quote.Discount),
			DeliveryCharge: money.DisplayFloat(status.Quote.DeliveryCharge),
			Total:          money.DisplayFloat(status.Quote.Total),
		}
		if status.Delivery != nil {
			quote.DeliveryAdvisory = status.Delivery.Advisory
			quote.CourierName = status.Delivery.CourierName
			quote.EstimatedDays = status.Delivery.EstimatedDays
		}
		view.Quote = quote
	}
	return view
}

func checkoutSession(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "session missing")
	}
	return sessionID, nil
}

// CheckoutBegin opens the flow: address book loaded, default address
// pre-selected, session placed in the email step.
func CheckoutBegin(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := orch.Begin(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutView(status, false))
	}
}

// CheckoutEmail submits the buyer email past the fraud gate.
func CheckoutEmail(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload submitEmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := orch.SubmitEmail(r.Context(), sessionID, payload.Email, clientIP(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"state": string(checkoutsvc.StateMethodSelection)})
	}
}

// CheckoutAddress pins the delivery destination.
func CheckoutAddress(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload selectAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := orch.SelectAddress(r.Context(), sessionID, payload.AddressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"selected_address": payload.AddressID})
	}
}

// CheckoutApplyCoupon validates and applies a coupon code.
func CheckoutApplyCoupon(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := orch.ApplyCoupon(r.Context(), sessionID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// CheckoutRemoveCoupon drops the applied coupon.
func CheckoutRemoveCoupon(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orch.RemoveCoupon(sessionID)
		responses.WriteSuccess(w, map[string]string{"coupon": "removed"})
	}
}

// CheckoutQuote recomputes and returns the order totals.
func CheckoutQuote(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := orch.Quote(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutView(status, true))
	}
}

// CheckoutPay creates the provider-side order for the chosen method.
func CheckoutPay(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload startPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		providerOrder, err := orch.CreateProviderOrder(r.Context(), sessionID, payment.Method(payload.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, providerOrder)
	}
}

// CheckoutCallback verifies the provider payment callback and submits the
// order exactly once.
func CheckoutCallback(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload paymentCallbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orch.HandlePaymentCallback(r.Context(), sessionID, payment.Callback{
			ProviderOrderID: payload.ProviderOrderID,
			PaymentID:       payload.PaymentID,
			Signature:       payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"state":    string(checkoutsvc.StateSuccess),
			"order_id": orderID,
		})
	}
}

// CheckoutRetry replays a failed order submission without re-charging.
func CheckoutRetry(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := checkoutSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload retrySubmissionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orch.RetrySubmission(r.Context(), sessionID, payload.TransactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"state":    string(checkoutsvc.StateSuccess),
			"order_id": orderID,
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
