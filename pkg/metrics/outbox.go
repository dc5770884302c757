package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Publish results recorded on storefront_outbox_publish_total.
const (
	PublishPublished   = "published"
	PublishRetried     = "retried"
	PublishDeadLetter  = "dead_lettered"
	outboxMetricPrefix = "storefront_outbox"
)

// OutboxMetrics records publisher progress. A nil *OutboxMetrics is a no-op.
type OutboxMetrics struct {
	publish *prometheus.CounterVec
	batch   prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publish := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: outboxMetricPrefix + "_publish_total",
		Help: "Outbox rows handled by result and event type.",
	}, []string{"result", "event_type"})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    outboxMetricPrefix + "_batch_size",
		Help:    "Rows claimed per publisher batch.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
	reg.MustRegister(publish, batch)
	return &OutboxMetrics{publish: publish, batch: batch}
}

// Record counts one handled row.
func (o *OutboxMetrics) Record(result, eventType string) {
	if o == nil || o.publish == nil {
		return
	}
	o.publish.WithLabelValues(result, eventType).Inc()
}

// ObserveBatch records how many rows a batch claimed.
func (o *OutboxMetrics) ObserveBatch(size int) {
	if o == nil || o.batch == nil {
		return
	}
	o.batch.Observe(float64(size))
}
