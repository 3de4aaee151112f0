package brain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tracerName = "github.com/AngelCh415/adbrain/internal/brain"

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adbrain_pipeline_runs_total",
		Help: "Brain pipeline runs by outcome",
	}, []string{"outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adbrain_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adbrain_cache_lookups_total",
		Help: "Brain state cache lookups by result (hit, miss, stale, error)",
	}, []string{"result"})

	droppedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adbrain_dropped_records_total",
		Help: "Malformed input records dropped before analysis",
	}, []string{"type"})

	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adbrain_findings_total",
		Help: "Risk findings produced, by kind",
	}, []string{"kind"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adbrain_upstream_breaker_open",
		Help: "1 while the upstream circuit breaker is open",
	})
)
