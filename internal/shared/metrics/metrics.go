package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Import pipeline metrics
	ImportsTotal       *prometheus.CounterVec
	ImportDuration     prometheus.Histogram
	BranchesImported   prometheus.Counter
	LanguagesImported  prometheus.Counter
	EnrichmentFailures *prometheus.CounterVec

	// GitHub API metrics
	GitHubRequestsTotal   *prometheus.CounterVec
	GitHubRequestDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agamify"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		ImportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "repositories_total",
				Help:      "Total number of repository import attempts",
			},
			[]string{"outcome"},
		),
		ImportDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "duration_seconds",
				Help:      "Repository import duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		BranchesImported: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "branches_total",
				Help:      "Total number of branches imported",
			},
		),
		LanguagesImported: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "languages_total",
				Help:      "Total number of languages imported",
			},
		),
		EnrichmentFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "enrichment_failures_total",
				Help:      "Total number of non-fatal enrichment failures",
			},
			[]string{"phase"},
		),

		GitHubRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "github",
				Name:      "requests_total",
				Help:      "Total number of GitHub API requests",
			},
			[]string{"operation", "status"},
		),
		GitHubRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "github",
				Name:      "request_duration_seconds",
				Help:      "GitHub API request duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
	}
}

// RecordHTTPRequest records metrics for a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGitHubRequest records metrics for a completed GitHub API call.
func (m *Metrics) RecordGitHubRequest(operation string, status int, duration time.Duration) {
	m.GitHubRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.GitHubRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordImport records the outcome of an import attempt.
func (m *Metrics) RecordImport(outcome string, duration time.Duration) {
	m.ImportsTotal.WithLabelValues(outcome).Inc()
	m.ImportDuration.Observe(duration.Seconds())
}
