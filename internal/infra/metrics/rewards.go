package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(commissionsTotal, pointsTotal) }

var (
	commissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affiliate_commissions_total",
			Help: "Minor-unit value of affiliate commissions created, labeled by currency.",
		},
		[]string{"currency"},
	)

	pointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_points_total",
			Help: "Loyalty points appended to the ledger, labeled by reason. Reversals are counted by magnitude.",
		},
		[]string{"reason"},
	)
)

func AddCommission(currency string, amount int64) {
	commissionsTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func AddPoints(reason string, points int64) {
	if points < 0 {
		points = -points
	}
	pointsTotal.WithLabelValues(norm(reason)).Add(float64(points))
}
