package metrics

import (
	"net/http"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatherly"

// Registry holds every gatherly metric. It is served on the metrics port,
// separate from the API.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

var (
	// OperationsTotal counts coordinator operations by outcome. outcome is
	// "ok" or the error kind.
	OperationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of coordinator operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// EventSignups counts successful sign ups and withdrawals.
	EventSignups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_membership_changes_total",
			Help:      "Committed event membership changes",
		},
		[]string{"change"},
	)

	// NotificationsDelivered counts notifier deliveries by channel and result.
	NotificationsDelivered = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Out-of-band notification deliveries",
		},
		[]string{"channel", "result"},
	)
)

// RecordOperation increments OperationsTotal for op.
func RecordOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordDelivery increments NotificationsDelivered for channel.
func RecordDelivery(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	NotificationsDelivered.WithLabelValues(channel, result).Inc()
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
