package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the global container of engine metrics.
type Metrics struct {
	// Run-loop metrics.
	StepsTotal    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	StepsInFlight prometheus.Gauge

	// Solver metrics.
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	IPMIterations        *prometheus.HistogramVec
	LPColumnsTotal       *prometheus.HistogramVec
	LPRowsTotal          *prometheus.HistogramVec

	// Parameter-graph metrics.
	ParameterFailuresTotal *prometheus.CounterVec

	// System metrics.
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Run information.
	RunInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics registers and returns the engine's Prometheus metrics.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		StepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "steps_total", Help: "Total number of time-steps executed",
			},
			[]string{"status"},
		),

		StepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name:    "step_duration_seconds",
				Help:    "Duration of a single run-loop step, all scenarios",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{},
		),

		StepsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "steps_in_flight", Help: "Steps currently being processed",
			},
		),

		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "solve_operations_total", Help: "Total number of LP solves",
			},
			[]string{"driver", "status"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name:    "solve_duration_seconds",
				Help:    "Duration of a solve call",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"driver"},
		),

		IPMIterations: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name:    "ipm_iterations",
				Help:    "Interior-point iterations to reach convergence for a batch",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
			},
			[]string{},
		),

		LPColumnsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name:    "lp_columns_total",
				Help:    "Number of columns in the compiled LP",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{},
		),

		LPRowsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name:    "lp_rows_total",
				Help:    "Number of rows in the compiled LP",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{},
		),

		ParameterFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "parameter_failures_total", Help: "Parameter compute/before/after failures",
			},
			[]string{"kind"},
		),

		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "memory_usage_bytes", Help: "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "goroutines", Help: "Current number of goroutines",
			},
		),

		RunInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "run_info", Help: "Run metadata",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics, initializing defaults if needed.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("hydroengine", "runloop")
	}
	return defaultMetrics
}

// RecordStep records a completed run-loop step.
func (m *Metrics) RecordStep(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StepsTotal.WithLabelValues(status).Inc()
	m.StepDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordSolve records a completed LP/IPM solve.
func (m *Metrics) RecordSolve(driver string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.SolveOperationsTotal.WithLabelValues(driver, status).Inc()
	m.SolveDuration.WithLabelValues(driver).Observe(duration.Seconds())
}

// RecordIPMIterations records how many IPM iterations a batch took.
func (m *Metrics) RecordIPMIterations(iterations int) {
	m.IPMIterations.WithLabelValues().Observe(float64(iterations))
}

// RecordLPSize records the compiled LP's column/row counts.
func (m *Metrics) RecordLPSize(columns, rows int) {
	m.LPColumnsTotal.WithLabelValues().Observe(float64(columns))
	m.LPRowsTotal.WithLabelValues().Observe(float64(rows))
}

// RecordParameterFailure records a parameter hook failure by error kind.
func (m *Metrics) RecordParameterFailure(kind string) {
	m.ParameterFailuresTotal.WithLabelValues(kind).Inc()
}

// SetRunInfo sets the run metadata gauge.
func (m *Metrics) SetRunInfo(version, environment string) {
	m.RunInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts the HTTP metrics server.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
