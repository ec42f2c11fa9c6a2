package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldwork_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_orders_total",
			Help: "Total number of order status transitions",
		},
		[]string{"status"},
	)

	OrderAcceptConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwork_order_accept_conflicts_total",
			Help: "Accept attempts that lost the assignment race",
		},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_payments_total",
			Help: "Total number of payments by terminal status",
		},
		[]string{"status"},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_withdrawals_total",
			Help: "Total number of withdrawals by status",
		},
		[]string{"status"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_webhook_events_total",
			Help: "Webhook deliveries by event family and outcome",
		},
		[]string{"family", "result"},
	)

	WalletEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_wallet_entries_total",
			Help: "Wallet ledger mutations by direction and outcome",
		},
		[]string{"direction", "result"},
	)

	NotificationsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwork_notifications_queued_total",
			Help: "Notifications pushed to the delivery queue",
		},
		[]string{"kind", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordOrderTransition(status string) {
	OrdersTotal.WithLabelValues(status).Inc()
}

func RecordAcceptConflict() {
	OrderAcceptConflictsTotal.Inc()
}

func RecordPayment(status string) {
	PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordWebhookEvent(family, result string) {
	WebhookEventsTotal.WithLabelValues(family, result).Inc()
}

func RecordWalletEntry(direction, result string) {
	WalletEntriesTotal.WithLabelValues(direction, result).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsQueuedTotal.WithLabelValues(kind, status).Inc()
}
