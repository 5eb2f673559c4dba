package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rohanmehta-dev/vastrakart/internal/cart"
	"github.com/rohanmehta-dev/vastrakart/internal/payment"
	"github.com/rohanmehta-dev/vastrakart/internal/pricing"
	"github.com/rohanmehta-dev/vastrakart/internal/shipping"
	"github.com/rohanmehta-dev/vastrakart/pkg/arcjet"
	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
	"github.com/rohanmehta-dev/vastrakart/pkg/metrics"
	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// State is the checkout position for one session. The flow is linear with
// a single branch at submission.
type State string

const (
	StateCollectingEmail   State = "collecting-email"
	StateMethodSelection   State = "payment-method-selection"
	StatePaymentInProgress State = "payment-in-progress"
	StateOrderSubmission   State = "order-submission"
	StateSuccess           State = "success"
	StateFailureRetry      State = "failure-retry"
)

// BackendAPI is the slice of the backend client checkout needs.
type BackendAPI interface {
	ListAddresses(ctx context.Context, sessionID string) ([]types.Address, error)
	ListCoupons(ctx context.Context, sessionID string) ([]types.Coupon, error)
	GetProduct(ctx context.Context, sessionID, productID string) (*types.Product, error)
	CreateOrder(ctx context.Context, sessionID string, draft types.OrderDraft) (string, error)
	UserID(ctx context.Context, sessionID string) (string, error)
}

// FraudAPI gates the email step.
type FraudAPI interface {
	ProtectEmail(ctx context.Context, email, clientIP string) (*arcjet.Decision, error)
}

// CartAccess hands out the session's cart container.
type CartAccess interface {
	Get(ctx context.Context, sessionID string) (*cart.Container, error)
}

// RateResolver produces delivery quotes.
type RateResolver interface {
	Resolve(ctx context.Context, sessionID string, items []types.CartItem, destinationPincode string) (*shipping.Quote, error)
}

// Guard is the one-shot submission lock keyed by transaction id.
type Guard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	OneShotKey(transactionID string) string
}

type session struct {
	state         State
	email         string
	addressID     string
	destination   string
	coupon        *types.Coupon
	quote         pricing.Quote
	delivery      *shipping.Quote
	method        payment.Method
	providerOrder *payment.ProviderOrder
	submitting    bool
}

// Orchestrator sequences the end-to-end purchase flow: address selection,
// delivery computation, coupon application, payment, order submission,
// cart clearing.
type Orchestrator struct {
	backend  BackendAPI
	carts    CartAccess
	resolver RateResolver
	adapters []payment.Adapter
	fraud    FraudAPI
	guard    Guard
	pending  PendingStore
	rates    pricing.Rates
	guardTTL time.Duration
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// Params collects the orchestrator dependencies.
type Params struct {
	Backend  BackendAPI
	Carts    CartAccess
	Resolver RateResolver
	Adapters []payment.Adapter
	Fraud    FraudAPI
	Guard    Guard
	Pending  PendingStore
	Rates    pricing.Rates
	GuardTTL time.Duration
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

// NewOrchestrator builds the checkout orchestrator.
func NewOrchestrator(params Params) (*Orchestrator, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend api required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart access required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("rate resolver required")
	}
	if len(params.Adapters) == 0 {
		return nil, fmt.Errorf("at least one payment adapter required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("submission guard required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending store required")
	}
	ttl := params.GuardTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Orchestrator{
		backend:  params.Backend,
		carts:    params.Carts,
		resolver: params.Resolver,
		adapters: params.Adapters,
		fraud:    params.Fraud,
		guard:    params.Guard,
		pending:  params.Pending,
		rates:    params.Rates,
		guardTTL: ttl,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (o *Orchestrator) session(sessionID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sessions == nil {
		o.sessions = map[string]*session{}
	}
	sess, ok := o.sessions[sessionID]
	if !ok {
		sess = &session{state: StateCollectingEmail}
		o.sessions[sessionID] = sess
	}
	return sess
}

// Status is the checkout view handed to the API layer.
type Status struct {
	State           State           `json:"state"`
	Email           string          `json:"email,omitempty"`
	Addresses       []types.Address `json:"addresses,omitempty"`
	SelectedAddress string          `json:"selected_address,omitempty"`
	Coupon          *types.Coupon   `json:"coupon,omitempty"`
	Delivery        *shipping.Quote `json:"-"`
	Quote           pricing.Quote   `json:"-"`
}

// Begin loads the address book and pre-selects the default (else first)
// address, leaving the session in the email-collection step.
func (o *Orchestrator) Begin(ctx context.Context, sessionID string) (*Status, error) {
	addresses, err := o.backend.ListAddresses(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess := o.session(sessionID)
	o.mu.Lock()
	if sess.state == "" || sess.state == StateSuccess {
		sess.state = StateCollectingEmail
	}
	if sess.addressID == "" {
		if selected := types.PreselectAddress(addresses); selected != nil {
			sess.addressID = selected.ID
			sess.destination = selected.PostalCode
		}
	}
	status := o.statusLocked(sess, addresses)
	o.mu.Unlock()
	return status, nil
}

func (o *Orchestrator) statusLocked(sess *session, addresses []types.Address) *Status {
	return &Status{
		State:           sess.state,
		Email:           sess.email,
		Addresses:       addresses,
		SelectedAddress: sess.addressID,
		Coupon:          sess.coupon,
		Delivery:        sess.delivery,
		Quote:           sess.quote,
	}
}

// SubmitEmail gates progression on the fraud-protection decision. A
// denial keeps the session in the email step and surfaces the specific
// reason; only an explicit allow advances to payment-method selection.
func (o *Orchestrator) SubmitEmail(ctx context.Context, sessionID, email, clientIP string) error {
	sess := o.session(sessionID)

	if o.fraud != nil {
		decision, err := o.fraud.ProtectEmail(ctx, email, clientIP)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "email check unavailable")
		}
		if !decision.Allowed {
			return pkgerrors.New(pkgerrors.CodeValidation, denialMessage(decision.Reason)).
				WithDetails(map[string]any{"reason": decision.Reason})
		}
	}

	o.mu.Lock()
	sess.email = email
	sess.state = StateMethodSelection
	o.mu.Unlock()
	return nil
}

func denialMessage(reason string) string {
	switch reason {
	case arcjet.ReasonDisposable:
		return "disposable email addresses are not allowed"
	case arcjet.ReasonInvalidEmail:
		return "email address is invalid"
	case arcjet.ReasonNoMXRecords:
		return "email domain cannot receive mail"
	case arcjet.ReasonBot:
		return "request was flagged as automated"
	case arcjet.ReasonRateLimited:
		return "too many attempts, try again later"
	default:
		return "email was rejected"
	}
}

// SelectAddress pins the shipping destination; the next quote recomputes
// delivery for it.
func (o *Orchestrator) SelectAddress(ctx context.Context, sessionID, addressID string) error {
	addresses, err := o.backend.ListAddresses(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, address := range addresses {
		if address.ID == addressID {
			sess := o.session(sessionID)
			o.mu.Lock()
			sess.addressID = address.ID
			sess.destination = address.PostalCode
			o.mu.Unlock()
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
}

// ApplyCoupon validates the code against the published list and stores it
// for pricing. Each rejection reason maps to its own message.
func (o *Orchestrator) ApplyCoupon(ctx context.Context, sessionID, code string) (*types.Coupon, error) {
	coupons, err := o.backend.ListCoupons(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	coupon, err := pricing.ValidateCoupon(coupons, code, o.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	sess := o.session(sessionID)
	o.mu.Lock()
	sess.coupon = coupon
	o.mu.Unlock()
	return coupon, nil
}

// RemoveCoupon drops any applied coupon.
func (o *Orchestrator) RemoveCoupon(sessionID string) {
	sess := o.session(sessionID)
	o.mu.Lock()
	sess.coupon = nil
	o.mu.Unlock()
}

// Quote recomputes the order totals from the live cart, the applied
// coupon, and a fresh delivery quote for the selected destination.
func (o *Orchestrator) Quote(ctx context.Context, sessionID string) (*Status, error) {
	container, err := o.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := container.Items()

	sess := o.session(sessionID)
	o.mu.Lock()
	destination := sess.destination
	coupon := sess.coupon
	o.mu.Unlock()

	delivery := &shipping.Quote{Charge: money.Zero, Fallback: true, Advisory: shipping.AdvisoryUnavailable}
	if destination != "" {
		if resolved, err := o.resolver.Resolve(ctx, sessionID, items, destination); err == nil {
			delivery = resolved
		}
	}

	quote := pricing.Compute(pricing.LineItemsFromCart(items), coupon, delivery.Charge, o.rates)

	o.mu.Lock()
	sess.delivery = delivery
	sess.quote = quote
	status := o.statusLocked(sess, nil)
	o.mu.Unlock()
	return status, nil
}

// CreateProviderOrder sizes a provider-side order to the current total.
// Failures keep the session in method selection with a distinct message.
func (o *Orchestrator) CreateProviderOrder(ctx context.Context, sessionID string, method payment.Method) (*payment.ProviderOrder, error) {
	sess := o.session(sessionID)
	o.mu.Lock()
	state := sess.state
	o.mu.Unlock()
	if state != StateMethodSelection && state != StateFailureRetry {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cannot start payment from state %s", state))
	}

	status, err := o.Quote(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	adapter, err := payment.Select(o.adapters, method)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method")
	}

	receipt := fmt.Sprintf("vk-%s-%d", shortSession(sessionID), o.now().Unix())
	providerOrder, err := adapter.CreateProviderOrder(ctx, status.Quote.Total, receipt)
	if err != nil {
		o.recordPaymentFailure(method, err)
		return nil, paymentError(err)
	}

	o.mu.Lock()
	sess.method = method
	sess.providerOrder = providerOrder
	sess.state = StatePaymentInProgress
	o.mu.Unlock()
	return providerOrder, nil
}

// HandlePaymentCallback verifies the provider callback and, exactly once
// per captured transaction, submits the final order. The adapter is the
// sole authority on payment success; a repeated callback for the same
// transaction hits the one-shot guard instead of re-submitting.
func (o *Orchestrator) HandlePaymentCallback(ctx context.Context, sessionID string, cb payment.Callback) (string, error) {
	sess := o.session(sessionID)
	o.mu.Lock()
	state := sess.state
	method := sess.method
	o.mu.Unlock()
	if state != StatePaymentInProgress {
		return "", pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("no payment in progress (state %s)", state))
	}

	adapter, err := payment.Select(o.adapters, method)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment adapter missing")
	}

	capture, err := adapter.Verify(ctx, cb)
	if err != nil {
		o.recordPaymentFailure(method, err)
		o.mu.Lock()
		sess.state = StateMethodSelection
		o.mu.Unlock()
		return "", paymentError(err)
	}

	first, err := o.guard.SetNX(ctx, o.guard.OneShotKey(capture.TransactionID), "1", o.guardTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submission guard unavailable")
	}
	if !first {
		// Duplicate callback. Replay only if the first submission never
		// completed; otherwise refuse the double submit.
		record, perr := o.pending.Get(ctx, capture.TransactionID)
		if perr == nil && record != nil {
			return o.retryFromRecord(ctx, sessionID, sess, *record)
		}
		return "", pkgerrors.New(pkgerrors.CodeIdempotency, "order already submitted for this payment")
	}

	draft, err := o.assembleDraft(ctx, sessionID, sess, capture.TransactionID)
	if err != nil {
		o.releaseGuard(ctx, capture.TransactionID)
		return "", err
	}

	payload, err := encodeDraft(draft)
	if err != nil {
		o.releaseGuard(ctx, capture.TransactionID)
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending order")
	}
	if err := o.pending.Save(ctx, PendingOrder{
		TransactionID: capture.TransactionID,
		SessionID:     sessionID,
		Provider:      string(method),
		Payload:       payload,
	}); err != nil {
		o.releaseGuard(ctx, capture.TransactionID)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist pending order")
	}

	return o.submit(ctx, sessionID, sess, draft)
}

// releaseGuard frees the one-shot key when the transaction has no pending
// record yet. Without it a failure between claiming the key and persisting
// the record would strand a captured payment: every retried callback would
// be refused as a duplicate with nothing on file to replay.
func (o *Orchestrator) releaseGuard(ctx context.Context, transactionID string) {
	if err := o.guard.Del(ctx, o.guard.OneShotKey(transactionID)); err != nil && o.logg != nil {
		o.logg.Error(ctx, "could not release submission guard, payment needs manual reconciliation", err)
	}
}

// RetrySubmission replays a failed order submission from its pending
// record. The payment is never re-verified or re-charged.
func (o *Orchestrator) RetrySubmission(ctx context.Context, sessionID, transactionID string) (string, error) {
	record, err := o.pending.Get(ctx, transactionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}
	if record == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no pending order for this payment")
	}
	if record.SessionID != sessionID {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "pending order belongs to another session")
	}
	sess := o.session(sessionID)
	return o.retryFromRecord(ctx, sessionID, sess, *record)
}

func (o *Orchestrator) retryFromRecord(ctx context.Context, sessionID string, sess *session, record PendingOrder) (string, error) {
	draft, err := decodeDraft(record.Payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode pending order")
	}
	return o.submit(ctx, sessionID, sess, draft)
}

// submit runs exactly one order-submission attempt; a second call while
// one is in flight is refused.
func (o *Orchestrator) submit(ctx context.Context, sessionID string, sess *session, draft types.OrderDraft) (string, error) {
	o.mu.Lock()
	if sess.submitting {
		o.mu.Unlock()
		return "", pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	sess.submitting = true
	sess.state = StateOrderSubmission
	method := sess.method
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		sess.submitting = false
		o.mu.Unlock()
	}()

	orderID, err := o.backend.CreateOrder(ctx, sessionID, draft)
	if err != nil {
		o.metrics.IncOrderSubmitted("failure", string(method))
		o.mu.Lock()
		sess.state = StateFailureRetry
		o.mu.Unlock()
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			"payment captured but order submission failed; retry will not charge again").
			WithDetails(map[string]any{"transaction_id": draft.TransactionID})
	}

	if err := o.pending.Delete(ctx, draft.TransactionID); err != nil && o.logg != nil {
		o.logg.Warn(ctx, "could not delete pending order record")
	}

	if container, cerr := o.carts.Get(ctx, sessionID); cerr == nil {
		if cerr := container.Clear(ctx); cerr != nil && o.logg != nil {
			o.logg.Warn(ctx, "cart clear after order failed")
		}
	}

	o.metrics.IncOrderSubmitted("success", string(method))
	o.mu.Lock()
	sess.state = StateSuccess
	o.mu.Unlock()
	return orderID, nil
}

// assembleDraft freezes the order payload: line items with live product
// category, the applied coupon, the computed total, and the verified
// transaction. The coupon is re-validated cheaply; if it went stale in
// the window since application, the last computed discount stands.
func (o *Orchestrator) assembleDraft(ctx context.Context, sessionID string, sess *session, transactionID string) (types.OrderDraft, error) {
	container, err := o.carts.Get(ctx, sessionID)
	if err != nil {
		return types.OrderDraft{}, err
	}
	items := container.Items()
	if len(items) == 0 {
		return types.OrderDraft{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	userID, err := o.backend.UserID(ctx, sessionID)
	if err != nil {
		return types.OrderDraft{}, err
	}

	o.mu.Lock()
	addressID := sess.addressID
	coupon := sess.coupon
	quote := sess.quote
	method := sess.method
	o.mu.Unlock()

	if addressID == "" {
		return types.OrderDraft{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping address not selected")
	}

	if coupon != nil {
		if coupons, cerr := o.backend.ListCoupons(ctx, sessionID); cerr == nil {
			if _, verr := pricing.ValidateCoupon(coupons, coupon.Code, o.now()); verr != nil && o.logg != nil {
				o.logg.Warn(ctx, "applied coupon went stale before submission, keeping last discount")
			}
		}
	}

	lines := make([]types.OrderLineItem, 0, len(items))
	for _, item := range items {
		category := ""
		if product, perr := o.backend.GetProduct(ctx, sessionID, item.ProductID); perr == nil {
			category = product.Category
		}
		lines = append(lines, types.OrderLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Category:  category,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			Price:     item.UnitPrice,
		})
	}

	couponID := ""
	if coupon != nil {
		couponID = coupon.ID
	}

	return types.OrderDraft{
		UserID:        userID,
		AddressID:     addressID,
		Items:         lines,
		CouponID:      couponID,
		Total:         money.DisplayFloat(quote.Total),
		PaymentMethod: string(method),
		PaymentStatus: "completed",
		TransactionID: transactionID,
	}, nil
}

func (o *Orchestrator) recordPaymentFailure(method payment.Method, err error) {
	reason := "unknown"
	var perr *payment.ProviderError
	if errors.As(err, &perr) {
		reason = perr.Reason
	}
	o.metrics.IncPaymentFailure(string(method), reason)
}

func paymentError(err error) error {
	var perr *payment.ProviderError
	if !errors.As(err, &perr) {
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment failed")
	}
	switch perr.Reason {
	case payment.ReasonUnavailable:
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment provider is unavailable")
	case payment.ReasonOrderCreation:
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, "could not start payment with the provider")
	case payment.ReasonVerification:
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment could not be verified")
	default:
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment failed")
	}
}

func shortSession(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8]
}
