// Package metrics exposes Prometheus collectors for the harvester pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal      *prometheus.CounterVec
	artifactsIngestedTotal *prometheus.CounterVec
	dedupHitsTotal         *prometheus.CounterVec
	skipsTotal             prometheus.Counter
	ingestFailuresTotal    *prometheus.CounterVec
	conversionsTotal       *prometheus.CounterVec
	conversionQueueDepth   prometheus.Gauge
	frontierDepth          prometheus.Gauge

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_fetched_total",
				Help: "Total frontier items fetched, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		artifactsIngestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_artifacts_ingested_total",
				Help: "Total artifact rows written, labeled by type.",
			},
			[]string{"type"},
		)
		dedupHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_dedup_hits_total",
				Help: "Dedup short-circuits, labeled by kind (row or blob).",
			},
			[]string{"kind"},
		)
		skipsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_skips_total",
				Help: "Responses classified as Skip and dropped without side effects.",
			},
		)
		ingestFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_ingest_failures_total",
				Help: "Per-artifact ingestion failures, labeled by stage.",
			},
			[]string{"stage"},
		)
		conversionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_conversions_total",
				Help: "Conversion attempts, labeled by status.",
			},
			[]string{"status"},
		)
		conversionQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_conversion_queue_depth",
				Help: "Number of artifacts waiting for conversion.",
			},
		)
		frontierDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_frontier_depth",
				Help: "Number of URLs queued in the frontier.",
			},
		)
	})
}

// PageFetched records a frontier fetch outcome ("ok", "error", "dropped").
func PageFetched(outcome string) {
	if pagesFetchedTotal != nil {
		pagesFetchedTotal.WithLabelValues(outcome).Inc()
	}
}

// ArtifactIngested records a new artifact row by type.
func ArtifactIngested(artifactType string) {
	if artifactsIngestedTotal != nil {
		artifactsIngestedTotal.WithLabelValues(artifactType).Inc()
	}
}

// DedupHit records a dedup short-circuit: "row" for an existing element_id,
// "blob" for a content-addressed object hit.
func DedupHit(kind string) {
	if dedupHitsTotal != nil {
		dedupHitsTotal.WithLabelValues(kind).Inc()
	}
}

// Skipped records a response classified as Skip.
func Skipped() {
	if skipsTotal != nil {
		skipsTotal.Inc()
	}
}

// IngestFailure records a per-artifact failure at the named stage.
func IngestFailure(stage string) {
	if ingestFailuresTotal != nil {
		ingestFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// Conversion records a conversion attempt status ("succeeded", "failed",
// "retried", "rejected").
func Conversion(status string) {
	if conversionsTotal != nil {
		conversionsTotal.WithLabelValues(status).Inc()
	}
}

// ConversionQueueDepth sets the current conversion backlog.
func ConversionQueueDepth(n int) {
	if conversionQueueDepth != nil {
		conversionQueueDepth.Set(float64(n))
	}
}

// FrontierDepth sets the current frontier backlog.
func FrontierDepth(n int) {
	if frontierDepth != nil {
		frontierDepth.Set(float64(n))
	}
}
