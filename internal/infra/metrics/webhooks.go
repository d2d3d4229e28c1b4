package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookDeliveriesTotal,
		webhookDuration,
		webhookRejectsTotal,
	)
}

var (
	// result: processed|duplicate|in_flight|ignored|noop|escalated|deferred|error
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook deliveries by pipeline outcome.",
		},
		[]string{"result"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Duration of the webhook handler in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	// reason: bad_signature|malformed|too_large|method_not_allowed
	webhookRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rejects_total",
			Help: "Webhook deliveries rejected before reaching the ledger.",
		},
		[]string{"reason"},
	)
)

func ObserveWebhook(result string, elapsed time.Duration) {
	webhookDeliveriesTotal.WithLabelValues(norm(result)).Inc()
	webhookDuration.WithLabelValues(norm(result)).Observe(elapsed.Seconds())
}

func IncWebhookReject(reason string) {
	webhookRejectsTotal.WithLabelValues(norm(reason)).Inc()
}
