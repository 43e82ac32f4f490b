// Package metrics holds the Prometheus collectors shared by the token service,
// its background jobs and the Kafka plumbing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medqueue"

// Issue outcomes recorded on TokensIssued.
const (
	OutcomeCreated     = "created"
	OutcomeIncremented = "incremented"
	OutcomeRefetched   = "refetched"
	OutcomeFailed      = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	TokensIssued        *prometheus.CounterVec
	LedgerConflicts     prometheus.Counter
	ProfileLinkFailures prometheus.Counter
	IssueDuration       prometheus.Histogram
	LedgerSequence      prometheus.Gauge

	KafkaPublished *prometheus.CounterVec
	KafkaConsumed  *prometheus.CounterVec
	KafkaDuration  *prometheus.HistogramVec
}

// New builds a Metrics set on its own registry so tests can create as many as they need.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token issue requests by outcome.",
		}, []string{"outcome"}),
		LedgerConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_create_conflicts_total",
			Help:      "Ledger creations that lost the race for the day.",
		}),
		ProfileLinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_link_failures_total",
			Help:      "Tokens issued whose patient profile could not be updated.",
		}),
		IssueDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_issue_duration_seconds",
			Help:      "Latency of IssueOrFetch.",
			Buckets:   prometheus.DefBuckets,
		}),
		LedgerSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_sequence_number",
			Help:      "Latest sequence number observed for the current day.",
		}),
		KafkaPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_published_total",
			Help:      "Kafka messages published by topic and result.",
		}, []string{"topic", "result"}),
		KafkaConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Kafka messages consumed by topic and result.",
		}, []string{"topic", "result"}),
		KafkaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_operation_duration_seconds",
			Help:      "Kafka publish and handle latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.TokensIssued,
		m.LedgerConflicts,
		m.ProfileLinkFailures,
		m.IssueDuration,
		m.LedgerSequence,
		m.KafkaPublished,
		m.KafkaConsumed,
		m.KafkaDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
