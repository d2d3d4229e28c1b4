package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		orderTransitionsTotal,
		paymentsRevenueTotal,
		subscriptionWritesTotal,
		anomaliesTotal,
	)
}

var (
	orderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order state transitions applied by reconciliation.",
		},
		[]string{"from", "to"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total minor-unit value of orders moved to paid, labeled by currency.",
		},
		[]string{"currency"},
	)

	subscriptionWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_writes_total",
			Help: "Subscription upserts by resulting status.",
		},
		[]string{"status"},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_anomalies_total",
			Help: "Reconciliation anomalies recorded for operator review.",
		},
		[]string{"kind", "severity"},
	)
)

func IncOrderTransition(from, to string) {
	orderTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncSubscriptionWrite(status string) {
	subscriptionWritesTotal.WithLabelValues(norm(status)).Inc()
}

func IncAnomaly(kind, severity string) {
	anomaliesTotal.WithLabelValues(norm(kind), norm(severity)).Inc()
}
