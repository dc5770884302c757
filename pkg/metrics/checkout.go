package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes recorded on storefront_checkout_total.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_inventory"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

const (
	defaultOutcomeLabel  = "unknown"
	checkoutMetricPrefix = "storefront_checkout"
)

// CheckoutMetrics records checkout attempts. A nil *CheckoutMetrics is a no-op.
type CheckoutMetrics struct {
	total      *prometheus.CounterVec
	duration   prometheus.Histogram
	rejections prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: checkoutMetricPrefix + "_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    checkoutMetricPrefix + "_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: checkoutMetricPrefix + "_inventory_rejections_total",
		Help: "Checkouts rejected because stock ran out.",
	})
	reg.MustRegister(total, duration, rejections)
	return &CheckoutMetrics{
		total:      total,
		duration:   duration,
		rejections: rejections,
	}
}

// Observe records one finished checkout.
func (c *CheckoutMetrics) Observe(outcome string, elapsed time.Duration) {
	if c == nil || c.total == nil {
		return
	}
	if outcome == "" {
		outcome = defaultOutcomeLabel
	}
	c.total.WithLabelValues(outcome).Inc()
	c.duration.Observe(elapsed.Seconds())
	if outcome == OutcomeInsufficient {
		c.rejections.Inc()
	}
}
