package monitor

import (
	"errors"

	"github.com/KNICEX/price-alert/internal/service/notification"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_alert_cycles_total",
			Help: "Monitoring cycles by result.",
		},
		[]string{"result"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_alert_evaluations_total",
			Help: "Alert evaluations by outcome.",
		},
		[]string{"outcome"},
	)

	dispatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_alert_dispatch_failures_total",
			Help: "Failed notification dispatches by reason.",
		},
		[]string{"reason"},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_alert_cycle_duration_seconds",
			Help:    "Duration of monitoring cycles in seconds.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, evaluationsTotal, dispatchFailuresTotal, cycleDurationSeconds)
}

func dispatchFailureReason(err error) string {
	switch {
	case errors.Is(err, notification.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, notification.ErrInvalidRecipient):
		return "invalid_recipient"
	case errors.Is(err, notification.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}
