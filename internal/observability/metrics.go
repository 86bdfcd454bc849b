package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "water_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset loading metrics.
	DatasetLoads    *prometheus.CounterVec // labels: outcome={success,error}
	SourceErrors    *prometheus.CounterVec // labels: source, status={missing,invalid,error}
	SourceRows      *prometheus.GaugeVec   // labels: source
	LoadDuration    prometheus.Histogram
	LastLoadSeconds prometheus.Gauge
	ReloaderRunning prometheus.Gauge

	// Rendering metrics.
	PageRenders      *prometheus.CounterVec // labels: page
	ChartRenders     *prometheus.CounterVec // labels: chart, outcome={success,error,empty}
	ShapefileUploads *prometheus.CounterVec // labels: outcome={success,error}
	Exports          *prometheus.CounterVec // labels: format

	// Publishing metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset snapshot loads by outcome.",
		}, []string{"outcome"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Input files that could not be used, by source and status.",
		}, []string{"source", "status"}),
		SourceRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_rows",
			Help:      "Rows in the current snapshot per source file.",
		}, []string{"source"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete read-normalize-concatenate load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LastLoadSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_load_timestamp_seconds",
			Help:      "Unix time of the current snapshot.",
		}),
		ReloaderRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reloader_running",
			Help:      "1 when the reload loop is active, 0 when shut down.",
		}),
		PageRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_renders_total",
			Help:      "Rendered dashboard pages.",
		}, []string{"page"}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Rendered charts by name and outcome.",
		}, []string{"chart", "outcome"}),
		ShapefileUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shapefile_uploads_total",
			Help:      "Shapefile archive uploads by outcome.",
		}, []string{"outcome"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Record exports by format.",
		}, []string{"format"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records written to the snapshot topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publications.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when county geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DatasetLoads,
		m.SourceErrors,
		m.SourceRows,
		m.LoadDuration,
		m.LastLoadSeconds,
		m.ReloaderRunning,
		m.PageRenders,
		m.ChartRenders,
		m.ShapefileUploads,
		m.Exports,
		m.RecordsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
