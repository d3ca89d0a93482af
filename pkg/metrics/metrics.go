// Package metrics provides Prometheus metrics for the sanitary testing service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JornadasTotal tracks session lifecycle transitions by kind and action
	JornadasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sanidad",
			Subsystem: "jornada",
			Name:      "transitions_total",
			Help:      "Total number of session lifecycle transitions",
		},
		[]string{"kind", "action"},
	)

	// PoolsGeneratedTotal tracks pools produced by allocation runs
	PoolsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sanidad",
			Subsystem: "pooling",
			Name:      "pools_generated_total",
			Help:      "Total number of pools produced by allocation runs",
		},
		[]string{"kind"},
	)

	// PoolAllocationDuration tracks allocation run duration in seconds
	PoolAllocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sanidad",
			Subsystem: "pooling",
			Name:      "allocation_duration_seconds",
			Help:      "Duration of pool allocation runs in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// ResultsRecordedTotal tracks recorded pool results by outcome
	ResultsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sanidad",
			Subsystem: "results",
			Name:      "recorded_total",
			Help:      "Total number of pool results recorded by outcome",
		},
		[]string{"result"},
	)

	// TemperatureDeviationsTotal tracks bath temperature readings outside the window
	TemperatureDeviationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sanidad",
			Subsystem: "temperature",
			Name:      "deviations_total",
			Help:      "Total number of water bath readings outside the accepted window",
		},
	)

	// KafkaMessagesPublished tracks lifecycle events published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sanidad",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sanidad",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RecordJornadaTransition records a session lifecycle transition
func RecordJornadaTransition(kind, action string) {
	JornadasTotal.WithLabelValues(kind, action).Inc()
}

// RecordPoolsGenerated records the outcome of an allocation run
func RecordPoolsGenerated(kind string, count int, durationSeconds float64) {
	PoolsGeneratedTotal.WithLabelValues(kind).Add(float64(count))
	PoolAllocationDuration.Observe(durationSeconds)
}

// RecordResult records a pool result by outcome
func RecordResult(result string) {
	ResultsRecordedTotal.WithLabelValues(result).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
