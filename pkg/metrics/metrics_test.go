package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.Observe(OutcomeSuccess, 120*time.Millisecond)
	m.Observe(OutcomeSuccess, 80*time.Millisecond)
	m.Observe(OutcomeInsufficient, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_checkout_total", "outcome", OutcomeSuccess); err != nil || got != 2 {
		t.Fatalf("expected success=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_checkout_total", "outcome", OutcomeInsufficient); err != nil || got != 1 {
		t.Fatalf("expected insufficient=1, got %f (%v)", got, err)
	}
	rejections := findMetricFamily(mfs, "storefront_checkout_inventory_rejections_total")
	if rejections == nil || rejections.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one inventory rejection")
	}
	hist := findMetricFamily(mfs, "storefront_checkout_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
		t.Fatalf("expected three duration samples")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var c *CheckoutMetrics
	c.Observe(OutcomeSuccess, time.Second)
	var h *HTTPMetrics
	h.Observe("GET", "/x", 200, time.Second)
	NewCheckoutMetrics(nil).Observe(OutcomeError, time.Second)
	var o *OutboxMetrics
	o.Record(PublishPublished, "order_created")
	o.ObserveBatch(3)
	var j *CronJobMetrics
	j.ObserveRun("stale-carts", nil, time.Second)
	j.AddDeleted("stale-carts", 4)
}

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("outbox-retention", nil, 2*time.Second)
	m.ObserveRun("outbox-retention", errors.New("boom"), time.Second)
	m.AddDeleted("outbox-retention", 7)
	m.AddDeleted("outbox-retention", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_cron_job_runs_total", "result", JobFailed); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_cron_rows_deleted_total", "job", "outbox-retention"); err != nil || got != 7 {
		t.Fatalf("expected 7 deleted rows, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "storefront_cron_job_duration_seconds", "job", "outbox-retention"); err != nil || got != 3 {
		t.Fatalf("expected duration sum 3, got %f (%v)", got, err)
	}
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Record(PublishPublished, "order_created")
	m.Record(PublishPublished, "order_created")
	m.Record(PublishDeadLetter, "order_created")
	m.ObserveBatch(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_outbox_publish_total", "result", PublishPublished); err != nil || got != 2 {
		t.Fatalf("expected published=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_outbox_publish_total", "result", PublishDeadLetter); err != nil || got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f (%v)", got, err)
	}
	batch := findMetricFamily(mfs, "storefront_outbox_batch_size")
	if batch == nil || batch.GetMetric()[0].GetHistogram().GetSampleSum() != 3 {
		t.Fatalf("expected batch size sample of 3")
	}
}

func TestHTTPMetricsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/stores/{storeDomain}/cart", 200, 5*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_http_requests_total", "route", "/api/v1/stores/{storeDomain}/cart"); err != nil || got != 1 {
		t.Fatalf("expected one cart request, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_http_requests_total", "route", "unmatched"); err != nil || got != 1 {
		t.Fatalf("expected one unmatched request, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "storefront_http_request_duration_seconds", "method", "GET"); err != nil || got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	var sum float64
	found := false
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			sum += metric.GetHistogram().GetSampleSum()
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
	}
	return sum, nil
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
