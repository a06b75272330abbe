package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, recurringRegistrations) }

const (
	ResultCompleted = "completed"
	ResultSkipped   = "skipped"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
)

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_jobs_processed_total",
			Help: "Pipeline job executions by kind and outcome.",
		},
		[]string{"kind", "result"}, // e.g., kind="recurring", result="retried"
	)

	recurringRegistrations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "story_recurring_registrations",
			Help: "Number of stories with an armed recurring refresh.",
		},
	)
)

func IncJobProcessed(kind, result string) {
	jobsProcessedTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func SetRecurringRegistrations(n int) {
	recurringRegistrations.Set(float64(n))
}
