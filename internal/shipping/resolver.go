package shipping

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rohanmehta-dev/vastrakart/pkg/config"
	"github.com/rohanmehta-dev/vastrakart/pkg/logger"
	"github.com/rohanmehta-dev/vastrakart/pkg/metrics"
	"github.com/rohanmehta-dev/vastrakart/pkg/money"
	"github.com/rohanmehta-dev/vastrakart/pkg/shiprocket"
	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// AdvisoryUnavailable is shown when rate lookup fails; it never blocks
// checkout.
const AdvisoryUnavailable = "unable to calculate delivery charges"

// State tracks the resolver lifecycle for one destination/weight tuple.
type State string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateResolved     State = "resolved"
	StateFallbackZero State = "fallback-zero"
)

// RateAPI is the serviceability surface of the shipping provider.
type RateAPI interface {
	Serviceability(ctx context.Context, req shiprocket.ServiceabilityRequest) (*shiprocket.ServiceabilityResult, error)
}

// ProductLoader fetches live product data for per-item weights.
type ProductLoader interface {
	GetProduct(ctx context.Context, sessionID, productID string) (*types.Product, error)
}

// Quote is the resolved delivery charge plus courier metadata for display.
type Quote struct {
	Charge        money.Amount
	CourierID     int
	CourierName   string
	EstimatedDays string
	WeightKG      float64
	Fallback      bool
	Advisory      string
}

// Resolver translates (destination, cart weight) into a delivery charge
// and a chosen courier. Both supported payment methods are prepaid, so the
// cash-on-delivery flag is fixed false. Results are last-request-wins: a
// slow response for a superseded destination/weight is discarded rather
// than overwriting a fresher quote.
type Resolver struct {
	api           RateAPI
	products      ProductLoader
	originPincode string
	defaultWeight float64
	metrics       *metrics.CheckoutMetrics
	logg          *logger.Logger

	generation atomic.Uint64

	mu      sync.RWMutex
	state   State
	lastKey string
	quote   *Quote
}

// NewResolver builds the resolver from the shipping config.
func NewResolver(api RateAPI, products ProductLoader, cfg config.ShippingConfig, m *metrics.CheckoutMetrics, logg *logger.Logger) (*Resolver, error) {
	if api == nil {
		return nil, fmt.Errorf("rate api required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if cfg.OriginPincode == "" {
		return nil, fmt.Errorf("origin pincode required")
	}
	weight := cfg.DefaultItemWeight
	if weight <= 0 {
		weight = 0.5
	}
	return &Resolver{
		api:           api,
		products:      products,
		originPincode: cfg.OriginPincode,
		defaultWeight: weight,
		metrics:       m,
		logg:          logg,
		state:         StateIdle,
	}, nil
}

// State returns the current resolver state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Resolve computes the delivery quote for the destination and cart
// contents. Identical inputs return the cached quote without a provider
// call, so unrelated state changes (coupon text input, for one) cannot
// trigger redundant lookups. Failures and empty results resolve to a zero
// charge with a non-fatal advisory.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, items []types.CartItem, destinationPincode string) (*Quote, error) {
	weight := r.totalWeight(ctx, sessionID, items)
	key := fmt.Sprintf("%s|%.2f", destinationPincode, weight)

	r.mu.Lock()
	if r.lastKey == key && r.quote != nil && r.state != StateLoading {
		quote := r.quote
		r.mu.Unlock()
		return quote, nil
	}
	r.state = StateLoading
	r.lastKey = key
	r.mu.Unlock()

	gen := r.generation.Add(1)

	result, err := r.api.Serviceability(ctx, shiprocket.ServiceabilityRequest{
		PickupPostcode:   r.originPincode,
		DeliveryPostcode: destinationPincode,
		WeightKG:         weight,
		CashOnDelivery:   false,
	})

	if gen != r.generation.Load() {
		// A newer request superseded this one; its result decides.
		return r.currentQuote(), nil
	}

	if err != nil || result == nil || len(result.Couriers) == 0 {
		if err != nil && r.logg != nil {
			r.logg.Warn(ctx, "delivery rate lookup failed, falling back to zero charge")
		}
		r.metrics.IncDeliveryFallback()
		quote := &Quote{
			Charge:   money.Zero,
			WeightKG: weight,
			Fallback: true,
			Advisory: AdvisoryUnavailable,
		}
		r.storeFallback(quote)
		return quote, nil
	}

	best := pickCourier(result)
	quote := &Quote{
		Charge:        money.FromFloat(best.Rate),
		CourierID:     best.CourierCompanyID,
		CourierName:   best.CourierName,
		EstimatedDays: best.EstimatedDays,
		WeightKG:      weight,
	}
	r.store(StateResolved, quote)
	return quote, nil
}

// totalWeight sums per-item weights, charging the default for products
// that do not specify one.
func (r *Resolver) totalWeight(ctx context.Context, sessionID string, items []types.CartItem) float64 {
	total := 0.0
	for _, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		weight := r.defaultWeight
		if product, err := r.products.GetProduct(ctx, sessionID, item.ProductID); err == nil && product.WeightKG != nil && *product.WeightKG > 0 {
			weight = *product.WeightKG
		}
		total += weight * float64(qty)
	}
	return total
}

// pickCourier prefers the provider's recommended courier, else the
// cheapest available rate.
func pickCourier(result *shiprocket.ServiceabilityResult) shiprocket.CourierQuote {
	for _, courier := range result.Couriers {
		if courier.CourierCompanyID == result.RecommendedCourier {
			return courier
		}
	}
	best := result.Couriers[0]
	for _, courier := range result.Couriers[1:] {
		if courier.Rate < best.Rate {
			best = courier
		}
	}
	return best
}

func (r *Resolver) store(state State, quote *Quote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.quote = quote
}

// storeFallback publishes the zero-charge quote without caching it under
// the input key; a transient provider outage must not pin a free delivery
// for that destination, so the next quote retries the provider.
func (r *Resolver) storeFallback(quote *Quote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateFallbackZero
	r.quote = quote
	r.lastKey = ""
}

func (r *Resolver) currentQuote() *Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.quote != nil {
		return r.quote
	}
	return &Quote{Charge: money.Zero, Fallback: true, Advisory: AdvisoryUnavailable}
}
