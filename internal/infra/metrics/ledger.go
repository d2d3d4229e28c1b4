package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerEventsTotal,
		ledgerStalePending,
		ledgerReplaysTotal,
	)
}

var (
	ledgerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_total",
			Help: "Ledger row writes by resulting status.",
		},
		[]string{"status"}, // 'pending', 'processed', 'failed', 'reclaimed'
	)

	ledgerStalePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_stale_pending",
			Help: "Pending ledger rows older than the stale threshold at the last sweep.",
		},
	)

	ledgerReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_replays_total",
			Help: "Replays of stale ledger rows by result.",
		},
		[]string{"result"},
	)
)

func IncLedgerEvent(status string) {
	ledgerEventsTotal.WithLabelValues(norm(status)).Inc()
}

func SetLedgerStalePending(n int) {
	ledgerStalePending.Set(float64(n))
}

func IncLedgerReplay(result string) {
	ledgerReplaysTotal.WithLabelValues(norm(result)).Inc()
}
