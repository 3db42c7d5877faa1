package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Delivery outcomes recorded by WebhookDeliveries.
const (
	OutcomeIgnored = "ignored"
	OutcomeNoMatch = "no_match"
	OutcomeAlert   = "alert"
	OutcomeInvalid = "invalid"
)

type Metrics struct {
	WebhookDeliveries *prometheus.CounterVec
	AlertsRecorded    prometheus.Counter
	StoreFailures     prometheus.Counter
	RepliesSent       prometheus.Counter
	RepliesSuppressed prometheus.Counter
	NotifyFailures    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries received, by intake outcome.",
		}, []string{"outcome"}),
		AlertsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_recorded_total",
			Help:      "Alerts persisted to the store.",
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Alerts that could not be persisted.",
		}),
		RepliesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_sent_total",
			Help:      "Emergency replies accepted by the messaging provider.",
		}),
		RepliesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_suppressed_total",
			Help:      "Emergency replies skipped inside the per-sender suppression window.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Emergency replies that failed after retries.",
		}),
	}
	reg.MustRegister(
		m.WebhookDeliveries,
		m.AlertsRecorded,
		m.StoreFailures,
		m.RepliesSent,
		m.RepliesSuppressed,
		m.NotifyFailures,
	)
	return m
}
