package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all notification delivery metrics
type Metrics struct {
	// Fan-out metrics
	EventsReceived      *prometheus.CounterVec
	EventsSkipped       prometheus.Counter
	TuplesResolved      prometheus.Histogram
	DispatchDuration    prometheus.Histogram
	NotificationsStored *prometheus.CounterVec
	StoreFailures       prometheus.Counter

	// Secondary channel metrics
	MailSent       prometheus.Counter
	MailFailed     prometheus.Counter
	MailSkipped    prometheus.Counter
	WebhookSent    prometheus.Counter
	WebhookFailed  prometheus.Counter
	WebhookSkipped prometheus.Counter

	// Live-sync metrics
	LivePushes       prometheus.Counter
	LivePushFailures prometheus.Counter
	LiveSubscribers  prometheus.Gauge

	// Retention metrics
	RetentionDeleted prometheus.Counter
}

// New creates and registers all notification metrics under the given
// namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of ticket lifecycle events received",
		}, []string{"event_type"}),
		EventsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Total number of malformed events skipped",
		}),
		TuplesResolved: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tuples_resolved_per_event",
			Help:      "Number of recipient tuples resolved per event",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50},
		}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent fanning out one event to all recipients",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		NotificationsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_stored_total",
			Help:      "Total number of notification rows created",
		}, []string{"notification_type"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Total number of failed notification store writes",
		}),
		MailSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_sent_total",
			Help:      "Total number of notification mails sent",
		}),
		MailFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_failed_total",
			Help:      "Total number of failed mail deliveries",
		}),
		MailSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_skipped_total",
			Help:      "Total number of mails skipped by preference gating",
		}),
		WebhookSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_sent_total",
			Help:      "Total number of chat webhook posts sent",
		}),
		WebhookFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_failed_total",
			Help:      "Total number of failed chat webhook posts",
		}),
		WebhookSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_skipped_total",
			Help:      "Total number of webhook posts skipped by preference gating",
		}),
		LivePushes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_pushes_total",
			Help:      "Total number of notifications published to the live channel",
		}),
		LivePushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_push_failures_total",
			Help:      "Total number of failed live channel publishes",
		}),
		LiveSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Current number of open live-sync subscriptions",
		}),
		RetentionDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Total number of read notifications deleted by retention",
		}),
	}
}
