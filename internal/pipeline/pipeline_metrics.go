package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the enrichment pipeline.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	DedupHitsTotal   prometheus.Counter
	LLMCallsTotal    *prometheus.CounterVec
	LLMDuration      prometheus.Histogram
	DeliveriesTotal  *prometheus.CounterVec
	ReprocessTotal   *prometheus.CounterVec
	CorrelationRisk  prometheus.Histogram
	SimilarNeighbors prometheus.Histogram
	PanicsRecovered  prometheus.Counter
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_events_total",
			Help: "Total processed alert events by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argus_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms .. ~160s
		}, []string{"stage"}),
		DedupHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_dedup_hits_total",
			Help: "Total alerts suppressed as duplicates.",
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_llm_calls_total",
			Help: "Total LLM provider calls by provider and result.",
		}, []string{"provider", "result"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_deliveries_total",
			Help: "Total delivery fan-outs by final status.",
		}, []string{"status"}),
		ReprocessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_reprocess_total",
			Help: "Total reprocess requests by result.",
		}, []string{"result"}),
		CorrelationRisk: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_correlation_risk_score",
			Help:    "Risk scores produced by the correlation engine.",
			Buckets: prometheus.LinearBuckets(1, 1, 10), // 1 .. 10
		}),
		SimilarNeighbors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_correlation_neighbors",
			Help:    "Neighbor count per correlation lookup.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
		PanicsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_pipeline_panics_total",
			Help: "Panics recovered inside the pipeline.",
		}),
	}

	reg.MustRegister(
		m.EventsTotal,
		m.StageDuration,
		m.DedupHitsTotal,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.DeliveriesTotal,
		m.ReprocessTotal,
		m.CorrelationRisk,
		m.SimilarNeighbors,
		m.PanicsRecovered,
	)

	return m
}
