package shipping

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rohanmehta-dev/vastrakart/pkg/config"
	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/shiprocket"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

type stubRateAPI struct {
	mu        sync.Mutex
	calls     int
	result    *shiprocket.ServiceabilityResult
	resultFor map[string]*shiprocket.ServiceabilityResult
	err       error
	blockOn   map[string]chan struct{}
}

func (s *stubRateAPI) Serviceability(ctx context.Context, req shiprocket.ServiceabilityRequest) (*shiprocket.ServiceabilityResult, error) {
	s.mu.Lock()
	s.calls++
	block := s.blockOn[req.DeliveryPostcode]
	result, err := s.result, s.err
	if override, ok := s.resultFor[req.DeliveryPostcode]; ok {
		result = override
	}
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return result, err
}

func (s *stubRateAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubRateAPI) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type stubProductLoader struct {
	weights map[string]float64
}

func (s *stubProductLoader) GetProduct(ctx context.Context, sessionID, productID string) (*types.Product, error) {
	if weight, ok := s.weights[productID]; ok {
		return &types.Product{ID: productID, WeightKG: &weight}, nil
	}
	return nil, errors.New("product not found")
}

func testShippingConfig() config.ShippingConfig {
	return config.ShippingConfig{OriginPincode: "110001", DefaultItemWeight: 0.5}
}

func newTestResolver(t *testing.T, api RateAPI, products ProductLoader) *Resolver {
	t.Helper()
	resolver, err := NewResolver(api, products, testShippingConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver
}

func cartItems() []types.CartItem {
	return []types.CartItem{{ID: "i1", ProductID: "p1", Quantity: 2}}
}

func TestResolvePicksRecommendedCourier(t *testing.T) {
	t.Parallel()

	api := &stubRateAPI{result: &shiprocket.ServiceabilityResult{
		Couriers: []shiprocket.CourierQuote{
			{CourierCompanyID: 11, CourierName: "SpeedyShip", Rate: 80, EstimatedDays: "2"},
			{CourierCompanyID: 22, CourierName: "BudgetPost", Rate: 40, EstimatedDays: "6"},
		},
		RecommendedCourier: 11,
	}}
	resolver := newTestResolver(t, api, &stubProductLoader{})

	quote, err := resolver.Resolve(context.Background(), "sess-1", cartItems(), "400001")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if quote.CourierID != 11 {
		t.Fatalf("courier = %d, want recommended 11", quote.CourierID)
	}
	if got := money.Display(quote.Charge); got != "80.00" {
		t.Fatalf("charge = %s, want 80.00", got)
	}
	if resolver.State() != StateResolved {
		t.Fatalf("state = %s, want resolved", resolver.State())
	}
}

func TestResolveFallsBackToCheapest(t *testing.T) {
	t.Parallel()

	api := &stubRateAPI{result: &shiprocket.ServiceabilityResult{
		Couriers: []shiprocket.CourierQuote{
			{CourierCompanyID: 11, CourierName: "SpeedyShip", Rate: 80},
			{CourierCompanyID: 22, CourierName: "BudgetPost", Rate: 40},
		},
		RecommendedCourier: 99, // not in the list
	}}
	resolver := newTestResolver(t, api, &stubProductLoader{})

	quote, err := resolver.Resolve(context.Background(), "sess-1", cartItems(), "400001")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if quote.CourierID != 22 {
		t.Fatalf("courier = %d, want cheapest 22", quote.CourierID)
	}
}

func TestResolveFailureYieldsZeroWithAdvisory(t *testing.T) {
	t.Parallel()

	api := &stubRateAPI{err: errors.New("provider down")}
	resolver := newTestResolver(t, api, &stubProductLoader{})

	quote, err := resolver.Resolve(context.Background(), "sess-1", cartItems(), "400001")
	if err != nil {
		t.Fatalf("failure must not block checkout, got error: %v", err)
	}
	if !quote.Charge.IsZero() {
		t.Fatalf("fallback charge = %s, want 0", quote.Charge)
	}
	if !quote.Fallback || quote.Advisory != AdvisoryUnavailable {
		t.Fatalf("fallback quote missing advisory: %+v", quote)
	}
	if resolver.State() != StateFallbackZero {
		t.Fatalf("state = %s, want fallback-zero", resolver.State())
	}
}

func TestResolveCachesIdenticalInputs(t *testing.T) {
	t.Parallel()

	api := &stubRateAPI{result: &shiprocket.ServiceabilityResult{
		Couriers:           []shiprocket.CourierQuote{{CourierCompanyID: 11, CourierName: "SpeedyShip", Rate: 80}},
		RecommendedCourier: 11,
	}}
	resolver := newTestResolver(t, api, &stubProductLoader{})

	items := cartItems()
	if _, err := resolver.Resolve(context.Background(), "sess-1", items, "400001"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), "sess-1", items, "400001"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if got := api.callCount(); got != 1 {
		t.Fatalf("provider called %d times for identical inputs, want 1", got)
	}
}

func TestResolveRetriesProviderAfterFallback(t *testing.T) {
	t.Parallel()

	api := &stubRateAPI{
		err: errors.New("provider down"),
		result: &shiprocket.ServiceabilityResult{
			Couriers:           []shiprocket.CourierQuote{{CourierCompanyID: 11, CourierName: "SpeedyShip", Rate: 80}},
			RecommendedCourier: 11,
		},
	}
	resolver := newTestResolver(t, api, &stubProductLoader{})

	items := cartItems()
	quote, err := resolver.Resolve(context.Background(), "sess-1", items, "400001")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !quote.Fallback {
		t.Fatal("outage must yield the fallback quote")
	}

	// The outage clears; the identical inputs must not serve the cached
	// zero charge.
	api.setErr(nil)
	quote, err = resolver.Resolve(context.Background(), "sess-1", items, "400001")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if quote.Fallback {
		t.Fatal("transient outage locked in the zero-charge quote")
	}
	if got := money.Display(quote.Charge); got != "80.00" {
		t.Fatalf("charge = %s, want 80.00", got)
	}
	if got := api.callCount(); got != 2 {
		t.Fatalf("provider called %d times, want a retry after the outage", got)
	}
}

func TestResolveLastRequestWins(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	api := &stubRateAPI{
		result: &shiprocket.ServiceabilityResult{
			Couriers:           []shiprocket.CourierQuote{{CourierCompanyID: 11, CourierName: "SpeedyShip", Rate: 80}},
			RecommendedCourier: 11,
		},
		resultFor: map[string]*shiprocket.ServiceabilityResult{
			"110011": {
				Couriers:           []shiprocket.CourierQuote{{CourierCompanyID: 33, CourierName: "SlowCarrier", Rate: 200}},
				RecommendedCourier: 33,
			},
		},
		blockOn: map[string]chan struct{}{"110011": release},
	}
	resolver := newTestResolver(t, api, &stubProductLoader{})

	slowDone := make(chan *Quote, 1)
	go func() {
		quote, _ := resolver.Resolve(context.Background(), "sess-1", cartItems(), "110011")
		slowDone <- quote
	}()

	// Wait for the slow request to be in flight.
	for api.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	fast, err := resolver.Resolve(context.Background(), "sess-1", cartItems(), "400001")
	if err != nil {
		t.Fatalf("fast resolve: %v", err)
	}

	close(release)
	slow := <-slowDone

	// The superseded slow response must not overwrite the fresher quote.
	if !slow.Charge.Equal(fast.Charge) || slow.CourierID != fast.CourierID {
		t.Fatalf("stale response leaked: slow=%+v fast=%+v", slow, fast)
	}
}

func TestTotalWeightUsesProductWeightsWithDefault(t *testing.T) {
	t.Parallel()

	api := &stubRateAPI{result: &shiprocket.ServiceabilityResult{
		Couriers:           []shiprocket.CourierQuote{{CourierCompanyID: 11, Rate: 10}},
		RecommendedCourier: 11,
	}}
	resolver := newTestResolver(t, api, &stubProductLoader{weights: map[string]float64{"p1": 1.2}})

	items := []types.CartItem{
		{ID: "i1", ProductID: "p1", Quantity: 2}, // 2 x 1.2
		{ID: "i2", ProductID: "p2", Quantity: 1}, // default 0.5
	}
	quote, err := resolver.Resolve(context.Background(), "sess-1", items, "400001")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if quote.WeightKG != 2.9 {
		t.Fatalf("weight = %v, want 2.9", quote.WeightKG)
	}
}
