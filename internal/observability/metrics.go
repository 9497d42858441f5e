package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation service.
type Metrics struct {
	AggregationRequests *prometheus.CounterVec // labels: mode={Cumulative,Average}, outcome={success,error}
	AggregationDuration prometheus.Histogram
	AmbiguousTimeAxis   prometheus.Counter

	DatasetCache *prometheus.CounterVec // labels: result={hit,miss}

	Renders prometheus.Counter
	Exports prometheus.Counter

	ServiceReady prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AggregationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall_map",
			Name:      "aggregation_requests_total",
			Help:      "Aggregation requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rainfall_map",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a complete load-resolve-slice-reduce cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AmbiguousTimeAxis: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall_map",
			Name:      "ambiguous_time_axis_total",
			Help:      "Datasets carrying more than one recognized time-axis spelling.",
		}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall_map",
			Name:      "dataset_cache_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall_map",
			Name:      "renders_total",
			Help:      "Total choropleth images rendered.",
		}),
		Exports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainfall_map",
			Name:      "exports_total",
			Help:      "Total CSV exports produced.",
		}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainfall_map",
			Name:      "service_ready",
			Help:      "1 after the first successful aggregation, 0 before.",
		}),
	}

	prometheus.MustRegister(
		m.AggregationRequests,
		m.AggregationDuration,
		m.AmbiguousTimeAxis,
		m.DatasetCache,
		m.Renders,
		m.Exports,
		m.ServiceReady,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AggregationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "rainfall_map", Name: "aggregation_requests_total"}, []string{"mode", "outcome"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "rainfall_map", Name: "aggregation_duration_seconds"}),
		AmbiguousTimeAxis:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "rainfall_map", Name: "ambiguous_time_axis_total"}),
		DatasetCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "rainfall_map", Name: "dataset_cache_total"}, []string{"result"}),
		Renders:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "rainfall_map", Name: "renders_total"}),
		Exports:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "rainfall_map", Name: "exports_total"}),
		ServiceReady:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "rainfall_map", Name: "service_ready"}),
	}
}
