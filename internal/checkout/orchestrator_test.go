package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohanmehta-dev/vastrakart/internal/cart"
	"github.com/rohanmehta-dev/vastrakart/internal/payment"
	"github.com/rohanmehta-dev/vastrakart/internal/pricing"
	"github.com/rohanmehta-dev/vastrakart/internal/shipping"
	"github.com/rohanmehta-dev/vastrakart/pkg/arcjet"
	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
	"github.com/shopspring/decimal"
)

type stubBackend struct {
	mu           sync.Mutex
	addresses    []types.Address
	coupons      []types.Coupon
	orderErr     error
	userIDErr    error
	orderCalls   int
	createdOrder string
	lastDraft    types.OrderDraft
}

func (s *stubBackend) ListAddresses(ctx context.Context, sessionID string) ([]types.Address, error) {
	return s.addresses, nil
}

func (s *stubBackend) ListCoupons(ctx context.Context, sessionID string) ([]types.Coupon, error) {
	return s.coupons, nil
}

func (s *stubBackend) GetProduct(ctx context.Context, sessionID, productID string) (*types.Product, error) {
	return &types.Product{ID: productID, Category: "ethnic-wear"}, nil
}

func (s *stubBackend) CreateOrder(ctx context.Context, sessionID string, draft types.OrderDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderCalls++
	s.lastDraft = draft
	if s.orderErr != nil {
		return "", s.orderErr
	}
	s.createdOrder = "ord-100"
	return s.createdOrder, nil
}

func (s *stubBackend) UserID(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userIDErr != nil {
		err := s.userIDErr
		s.userIDErr = nil
		return "", err
	}
	return "u-1", nil
}

func (s *stubBackend) orders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderCalls
}

// stubCartAPI backs the real container with canned server behavior.
type stubCartAPI struct {
	clearCalls int
}

func (s *stubCartAPI) FetchCart(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	return []types.CartItem{{ID: "srv-1", ProductID: "p1", Name: "Saree", UnitPrice: 800, Quantity: 1}}, nil
}

func (s *stubCartAPI) AddCartItem(ctx context.Context, sessionID string, item types.NewCartItem) (*types.CartItem, error) {
	return &types.CartItem{ID: "srv-x", ProductID: item.ProductID, Quantity: item.Quantity}, nil
}

func (s *stubCartAPI) UpdateCartItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) error {
	return nil
}

func (s *stubCartAPI) RemoveCartItem(ctx context.Context, sessionID, itemID string) error {
	return nil
}

func (s *stubCartAPI) ClearCart(ctx context.Context, sessionID string) error {
	s.clearCalls++
	return nil
}

type nullGuestStore struct{}

func (nullGuestStore) Load(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	return nil, nil
}
func (nullGuestStore) Upsert(ctx context.Context, sessionID string, item types.CartItem) error {
	return nil
}
func (nullGuestStore) Remove(ctx context.Context, sessionID, itemID string) error { return nil }
func (nullGuestStore) Clear(ctx context.Context, sessionID string) error          { return nil }

type stubCartAccess struct {
	container *cart.Container
}

func (s *stubCartAccess) Get(ctx context.Context, sessionID string) (*cart.Container, error) {
	return s.container, nil
}

type stubResolver struct {
	quote *shipping.Quote
}

func (s *stubResolver) Resolve(ctx context.Context, sessionID string, items []types.CartItem, destinationPincode string) (*shipping.Quote, error) {
	if s.quote != nil {
		return s.quote, nil
	}
	return &shipping.Quote{Charge: money.FromInt(49), CourierName: "SpeedyShip"}, nil
}

type stubFraud struct {
	decision arcjet.Decision
	err      error
}

func (s *stubFraud) ProtectEmail(ctx context.Context, email, clientIP string) (*arcjet.Decision, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s.decision, nil
}

type stubGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newStubGuard() *stubGuard {
	return &stubGuard{keys: map[string]bool{}}
}

func (g *stubGuard) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *stubGuard) Del(ctx context.Context, keys ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		delete(g.keys, key)
	}
	return nil
}

func (g *stubGuard) OneShotKey(transactionID string) string {
	return "oneshot:" + transactionID
}

func (g *stubGuard) held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[key]
}

type memoryPendingStore struct {
	mu      sync.Mutex
	records map[string]PendingOrder
}

func newMemoryPendingStore() *memoryPendingStore {
	return &memoryPendingStore{records: map[string]PendingOrder{}}
}

func (m *memoryPendingStore) Save(ctx context.Context, record PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.TransactionID] = record
	return nil
}

func (m *memoryPendingStore) Get(ctx context.Context, transactionID string) (*PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[transactionID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *memoryPendingStore) Delete(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, transactionID)
	return nil
}

func (m *memoryPendingStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type fakeAdapter struct {
	method     payment.Method
	createErr  error
	verifyErr  error
	txnID      string
	verifyHits int
}

func (f *fakeAdapter) Method() payment.Method { return f.method }

func (f *fakeAdapter) CreateProviderOrder(ctx context.Context, total money.Amount, receipt string) (*payment.ProviderOrder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &payment.ProviderOrder{Method: f.method, OrderID: "prov-1"}, nil
}

func (f *fakeAdapter) Verify(ctx context.Context, cb payment.Callback) (*payment.Capture, error) {
	f.verifyHits++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &payment.Capture{TransactionID: f.txnID}, nil
}

type fixture struct {
	orch    *Orchestrator
	backend *stubBackend
	cartAPI *stubCartAPI
	adapter *fakeAdapter
	guard   *stubGuard
	pending *memoryPendingStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cartAPI := &stubCartAPI{}
	container, err := cart.NewContainer("sess-1", cart.ModeAuthenticated, cartAPI, nullGuestStore{}, nil, nil)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := container.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	backend := &stubBackend{
		addresses: []types.Address{
			{ID: "a1", PostalCode: "400001"},
			{ID: "a2", PostalCode: "110001", IsDefault: true},
		},
		coupons: []types.Coupon{{
			ID: "c1", Code: "SAVE10", DiscountPercent: 10,
			StartDate: time.Now().AddDate(0, -1, 0), EndDate: time.Now().AddDate(0, 1, 0),
			UsageLimit: 100,
		}},
	}
	adapter := &fakeAdapter{method: payment.MethodRazorpay, txnID: "pay_1"}
	guard := newStubGuard()
	pending := newMemoryPendingStore()

	orch, err := NewOrchestrator(Params{
		Backend:  backend,
		Carts:    &stubCartAccess{container: container},
		Resolver: &stubResolver{},
		Adapters: []payment.Adapter{adapter},
		Fraud:    &stubFraud{decision: arcjet.Decision{Allowed: true}},
		Guard:    guard,
		Pending:  pending,
		Rates: pricing.Rates{
			CGSTPercent: decimal.NewFromFloat(2.5),
			SGSTPercent: decimal.NewFromFloat(2.5),
		},
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return &fixture{orch: orch, backend: backend, cartAPI: cartAPI, adapter: adapter, guard: guard, pending: pending}
}

func advanceToPayment(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.orch.Begin(ctx, "sess-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.orch.SubmitEmail(ctx, "sess-1", "buyer@example.in", "1.2.3.4"); err != nil {
		t.Fatalf("SubmitEmail: %v", err)
	}
	if _, err := f.orch.CreateProviderOrder(ctx, "sess-1", payment.MethodRazorpay); err != nil {
		t.Fatalf("CreateProviderOrder: %v", err)
	}
}

func TestBeginPreselectsDefaultAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, err := f.orch.Begin(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if status.State != StateCollectingEmail {
		t.Fatalf("state = %s, want collecting-email", status.State)
	}
	if status.SelectedAddress != "a2" {
		t.Fatalf("selected address = %q, want default a2", status.SelectedAddress)
	}
}

func TestSubmitEmailDenialKeepsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.orch.fraud = &stubFraud{decision: arcjet.Decision{Allowed: false, Reason: arcjet.ReasonDisposable}}

	ctx := context.Background()
	if _, err := f.orch.Begin(ctx, "sess-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := f.orch.SubmitEmail(ctx, "sess-1", "throwaway@mailinator.com", "1.2.3.4")
	if err == nil {
		t.Fatal("denied email must be rejected")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	// Still in the email step: starting payment is refused.
	if _, err := f.orch.CreateProviderOrder(ctx, "sess-1", payment.MethodRazorpay); err == nil {
		t.Fatal("payment must not start from collecting-email")
	}
}

func TestQuoteIncludesDeliveryAndCoupon(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.orch.Begin(ctx, "sess-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.orch.ApplyCoupon(ctx, "sess-1", "SAVE10"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}

	status, err := f.orch.Quote(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// 800 + 20 + 20 + 49 - 80
	if got := money.Display(status.Quote.Total); got != "809.00" {
		t.Fatalf("total = %s, want 809.00", got)
	}
}

func TestApplyCouponRejectionsDistinct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.coupons = append(f.backend.coupons, types.Coupon{
		ID: "c2", Code: "OLD", DiscountPercent: 20,
		StartDate: time.Now().AddDate(0, -2, 0), EndDate: time.Now().AddDate(0, -1, 0),
		UsageLimit: 10,
	})

	ctx := context.Background()
	if _, err := f.orch.ApplyCoupon(ctx, "sess-1", "NOSUCH"); err == nil || !errContains(err, "invalid coupon code") {
		t.Fatalf("unknown code: %v", err)
	}
	if _, err := f.orch.ApplyCoupon(ctx, "sess-1", "OLD"); err == nil || !errContains(err, "expired") {
		t.Fatalf("expired code: %v", err)
	}
}

func TestHappyPathSubmitsOrderOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	advanceToPayment(t, f)

	orderID, err := f.orch.HandlePaymentCallback(context.Background(), "sess-1", payment.Callback{
		ProviderOrderID: "prov-1", PaymentID: "pay_1", Signature: "sig",
	})
	if err != nil {
		t.Fatalf("HandlePaymentCallback: %v", err)
	}
	if orderID != "ord-100" {
		t.Fatalf("order id = %q", orderID)
	}
	if f.backend.orders() != 1 {
		t.Fatalf("backend saw %d order submissions, want 1", f.backend.orders())
	}
	if f.pending.count() != 0 {
		t.Fatal("pending record not cleaned up after success")
	}
	if f.cartAPI.clearCalls != 1 {
		t.Fatalf("cart cleared %d times, want 1", f.cartAPI.clearCalls)
	}
	if f.backend.lastDraft.PaymentStatus != "completed" || f.backend.lastDraft.TransactionID != "pay_1" {
		t.Fatalf("draft not frozen correctly: %+v", f.backend.lastDraft)
	}
}

func TestVerificationFailureReturnsToMethodSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	advanceToPayment(t, f)
	f.adapter.verifyErr = errors.New("signature mismatch")

	_, err := f.orch.HandlePaymentCallback(context.Background(), "sess-1", payment.Callback{
		ProviderOrderID: "prov-1", PaymentID: "pay_1", Signature: "bad",
	})
	if err == nil {
		t.Fatal("failed verification must surface")
	}
	if f.backend.orders() != 0 {
		t.Fatal("order submitted despite failed verification")
	}

	// Back in method selection: a new payment attempt is allowed.
	f.adapter.verifyErr = nil
	if _, err := f.orch.CreateProviderOrder(context.Background(), "sess-1", payment.MethodRazorpay); err != nil {
		t.Fatalf("restart payment: %v", err)
	}
}

func TestDuplicateCallbackDoesNotResubmit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	advanceToPayment(t, f)

	cb := payment.Callback{ProviderOrderID: "prov-1", PaymentID: "pay_1", Signature: "sig"}
	if _, err := f.orch.HandlePaymentCallback(context.Background(), "sess-1", cb); err != nil {
		t.Fatalf("first callback: %v", err)
	}

	// Re-arm the state machine as a duplicate delivery would find it.
	f.orch.mu.Lock()
	f.orch.sessions["sess-1"].state = StatePaymentInProgress
	f.orch.mu.Unlock()

	_, err := f.orch.HandlePaymentCallback(context.Background(), "sess-1", cb)
	if err == nil {
		t.Fatal("duplicate callback must be refused")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeIdempotency {
		t.Fatalf("unexpected duplicate error: %v", err)
	}
	if f.backend.orders() != 1 {
		t.Fatalf("backend saw %d submissions after duplicate callback, want 1", f.backend.orders())
	}
}

func TestAssemblyFailureFreesGuardForRedeliveredCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	advanceToPayment(t, f)
	f.backend.userIDErr = errors.New("profile lookup timed out")

	ctx := context.Background()
	cb := payment.Callback{ProviderOrderID: "prov-1", PaymentID: "pay_1", Signature: "sig"}
	if _, err := f.orch.HandlePaymentCallback(ctx, "sess-1", cb); err == nil {
		t.Fatal("transient assembly failure must surface")
	}
	if f.backend.orders() != 0 {
		t.Fatalf("backend saw %d submissions after failed assembly, want 0", f.backend.orders())
	}
	if f.pending.count() != 0 {
		t.Fatal("no pending record should exist after failed assembly")
	}
	if f.guard.held(f.guard.OneShotKey("pay_1")) {
		t.Fatal("guard key still held with nothing on file; a redelivered callback would strand the capture")
	}

	// The provider redelivers the callback; the order must still be placed.
	orderID, err := f.orch.HandlePaymentCallback(ctx, "sess-1", cb)
	if err != nil {
		t.Fatalf("redelivered callback: %v", err)
	}
	if orderID != "ord-100" {
		t.Fatalf("order id = %q", orderID)
	}
	if f.backend.orders() != 1 {
		t.Fatalf("backend saw %d submissions, want exactly 1", f.backend.orders())
	}
}

func TestSubmissionFailureLeavesPendingRecordForRetry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	advanceToPayment(t, f)
	f.backend.orderErr = errors.New("backend down")

	_, err := f.orch.HandlePaymentCallback(context.Background(), "sess-1", payment.Callback{
		ProviderOrderID: "prov-1", PaymentID: "pay_1", Signature: "sig",
	})
	if err == nil {
		t.Fatal("failed submission must surface")
	}
	if f.pending.count() != 1 {
		t.Fatal("pending record missing after failed submission")
	}

	verifiesBefore := f.adapter.verifyHits

	// Retry replays the frozen draft without touching the provider again.
	f.backend.mu.Lock()
	f.backend.orderErr = nil
	f.backend.mu.Unlock()

	orderID, err := f.orch.RetrySubmission(context.Background(), "sess-1", "pay_1")
	if err != nil {
		t.Fatalf("RetrySubmission: %v", err)
	}
	if orderID != "ord-100" {
		t.Fatalf("order id = %q", orderID)
	}
	if f.adapter.verifyHits != verifiesBefore {
		t.Fatal("retry re-verified (re-charged) the payment")
	}
	if f.pending.count() != 0 {
		t.Fatal("pending record not cleaned up after retried success")
	}
}

func TestRetryUnknownTransactionNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.orch.RetrySubmission(context.Background(), "sess-1", "pay_nope")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetryForeignSessionForbidden(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.pending.Save(context.Background(), PendingOrder{
		TransactionID: "pay_9", SessionID: "other-session", Provider: "razorpay", Payload: "{}",
	})

	_, err := f.orch.RetrySubmission(context.Background(), "sess-1", "pay_9")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func errContains(err error, substr string) bool {
	return err != nil && strings.Contains(err.Error(), substr)
}
