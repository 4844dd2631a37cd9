package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the sync pipeline.
type Metrics struct {
	SyncRuns      prometheus.Counter
	SyncErrors    prometheus.Counter
	SyncDuration  prometheus.Histogram
	QuotesSeen    prometheus.Counter
	WebhookEvents *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	return &Metrics{
		SyncRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_syncs_total",
			Help:      "The total number of pipeline sync runs",
		}),
		SyncErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_sync_errors_total",
			Help:      "The total number of failed pipeline sync runs",
		}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_sync_duration_seconds",
			Help:      "Time taken by a pipeline sync run",
			Buckets:   prometheus.DefBuckets,
		}),
		QuotesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marketplace_quotes_seen_total",
			Help:      "The total number of seller quotes extracted during syncs",
		}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound webhook events by outcome",
		}, []string{"outcome"}),
	}
}
