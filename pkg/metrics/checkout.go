package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout and payment outcomes.
type CheckoutMetrics struct {
	ordersSubmitted   *prometheus.CounterVec
	paymentFailures   *prometheus.CounterVec
	deliveryFallbacks prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_submitted_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome", "provider"})
	paymentFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_failures_total",
		Help: "Payment failures by provider and reason.",
	}, []string{"provider", "reason"})
	deliveryFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_delivery_fallbacks_total",
		Help: "Delivery quotes that fell back to a zero charge.",
	})
	reg.MustRegister(ordersSubmitted, paymentFailures, deliveryFallbacks)
	return &CheckoutMetrics{
		ordersSubmitted:   ordersSubmitted,
		paymentFailures:   paymentFailures,
		deliveryFallbacks: deliveryFallbacks,
	}
}

// IncOrderSubmitted records one order-submission attempt outcome.
func (c *CheckoutMetrics) IncOrderSubmitted(outcome, provider string) {
	if c == nil || c.ordersSubmitted == nil {
		return
	}
	c.ordersSubmitted.WithLabelValues(normalizeLabel(outcome), normalizeLabel(provider)).Inc()
}

// IncPaymentFailure records a payment failure with its reason.
func (c *CheckoutMetrics) IncPaymentFailure(provider, reason string) {
	if c == nil || c.paymentFailures == nil {
		return
	}
	c.paymentFailures.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

// IncDeliveryFallback records a zero-charge delivery fallback.
func (c *CheckoutMetrics) IncDeliveryFallback() {
	if c == nil || c.deliveryFallbacks == nil {
		return
	}
	c.deliveryFallbacks.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
