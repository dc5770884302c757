package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job results recorded on storefront_cron_job_runs_total.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

const cronMetricPrefix = "storefront_cron"

// CronJobMetrics records scheduled job runs. A nil *CronJobMetrics is a no-op.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	affected *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: cronMetricPrefix + "_job_runs_total",
		Help: "Cron job runs by job and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    cronMetricPrefix + "_job_duration_seconds",
		Help:    "Duration of cron job runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	affected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: cronMetricPrefix + "_rows_deleted_total",
		Help: "Rows removed by cleanup jobs.",
	}, []string{"job"})
	reg.MustRegister(runs, duration, affected)
	return &CronJobMetrics{runs: runs, duration: duration, affected: affected}
}

// ObserveRun records one finished job run.
func (c *CronJobMetrics) ObserveRun(job string, err error, elapsed time.Duration) {
	if c == nil || c.runs == nil {
		return
	}
	job = jobLabel(job)
	result := JobSucceeded
	if err != nil {
		result = JobFailed
	}
	c.runs.WithLabelValues(job, result).Inc()
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// AddDeleted counts rows a cleanup job removed.
func (c *CronJobMetrics) AddDeleted(job string, rows int64) {
	if c == nil || c.affected == nil || rows <= 0 {
		return
	}
	c.affected.WithLabelValues(jobLabel(job)).Add(float64(rows))
}

func jobLabel(job string) string {
	if job == "" {
		return defaultOutcomeLabel
	}
	return job
}
