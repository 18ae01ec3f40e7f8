package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Billing pipeline metrics
	Settlements         *prometheus.CounterVec
	SettlementLatency   prometheus.Histogram
	SettledAmount       *prometheus.CounterVec
	InvoicesSynthesized prometheus.Counter
	QREncodeFailures    prometheus.Counter
	ReadingsSaved       prometheus.Counter
	StatusTransitions   *prometheus.CounterVec

	// Tier cache metrics
	TierCacheHits   prometheus.Counter
	TierCacheMisses prometheus.Counter

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil registerer leaves the collectors unregistered, which is what tests want.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Total number of settlement attempts by method and outcome",
		}, []string{"method", "outcome"}),
		SettlementLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_seconds",
			Help:      "Time spent settling a payment",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		SettledAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_amount_total",
			Help:      "Sum of settled amounts by method",
		}, []string{"method"}),
		InvoicesSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_synthesized_total",
			Help:      "Total number of invoices computed",
		}),
		QREncodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_qr_encode_failures_total",
			Help:      "Total number of failed invoice QR image encodings",
		}),
		ReadingsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treatment_readings_saved_total",
			Help:      "Total number of treatment readings saved",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patient_status_transitions_total",
			Help:      "Total number of patient status transitions",
		}, []string{"to"}),

		TierCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_cache_hits_total",
			Help:      "Tier table lookups served from cache",
		}),
		TierCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_cache_misses_total",
			Help:      "Tier table lookups that went to the store",
		}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
