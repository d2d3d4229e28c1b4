package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, workerTasksTotal) }

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Email notifications by template and delivery status.",
		},
		[]string{"template", "status"}, // status: 'sent', 'failed', 'dropped'
	)

	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Total number of background tasks run by the worker pool, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed', 'rejected'
	)
)

func IncNotification(template, status string) {
	notificationsTotal.WithLabelValues(norm(template), norm(status)).Inc()
}

func IncWorkerTask(status string) {
	workerTasksTotal.WithLabelValues(norm(status)).Inc()
}
