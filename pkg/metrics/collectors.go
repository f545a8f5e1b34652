package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunSnapshot is the scrape-time view of a simulation run that
// RunCollector reports. The run loop owns the counters; the collector
// only reads them through the snapshot callback.
type RunSnapshot struct {
	Scenarios          int
	Nodes              int
	Edges              int
	StepsCompleted     int
	TotalStorageVolume float64
}

// RunCollector exposes the shape and progress of a simulation run as
// gauges plus a steps-completed counter, pulled at scrape time rather than pushed per step so a slow
// Prometheus scrape never sits on the run loop's critical path.
type RunCollector struct {
	snapshot func() RunSnapshot

	scenarios      *prometheus.Desc
	nodes          *prometheus.Desc
	edges          *prometheus.Desc
	stepsCompleted *prometheus.Desc
	storageVolume  *prometheus.Desc
}

// NewRunCollector builds a collector reading from snapshot.
func NewRunCollector(namespace, subsystem string, snapshot func() RunSnapshot) *RunCollector {
	return &RunCollector{
		snapshot: snapshot,
		scenarios: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "run_scenarios"),
			"Number of scenarios in the run's domain",
			nil, nil,
		),
		nodes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "run_network_nodes"),
			"Number of nodes in the simulated network",
			nil, nil,
		),
		edges: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "run_network_edges"),
			"Number of edges in the simulated network",
			nil, nil,
		),
		stepsCompleted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "run_steps_completed"),
			"Time-steps completed so far, all scenarios",
			nil, nil,
		),
		storageVolume: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "run_total_storage_volume"),
			"Sum of storage volumes across nodes and scenarios",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RunCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.scenarios
	ch <- c.nodes
	ch <- c.edges
	ch <- c.stepsCompleted
	ch <- c.storageVolume
}

// Collect implements prometheus.Collector.
func (c *RunCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.scenarios, prometheus.GaugeValue, float64(s.Scenarios))
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(s.Nodes))
	ch <- prometheus.MustNewConstMetric(c.edges, prometheus.GaugeValue, float64(s.Edges))
	ch <- prometheus.MustNewConstMetric(c.stepsCompleted, prometheus.CounterValue, float64(s.StepsCompleted))
	ch <- prometheus.MustNewConstMetric(c.storageVolume, prometheus.GaugeValue, s.TotalStorageVolume)
}

// StepTracker tracks how many (step, scenario) units of work are
// currently in flight, broken down by phase ("compute", "solve",
// "record"), and keeps an in-flight gauge in sync.
type StepTracker struct {
	mu       sync.Mutex
	active   map[string]int
	inFlight prometheus.Gauge
}

// NewStepTracker builds a StepTracker reporting into inFlight.
func NewStepTracker(inFlight prometheus.Gauge) *StepTracker {
	return &StepTracker{
		active:   make(map[string]int),
		inFlight: inFlight,
	}
}

// Start marks the beginning of one unit of work in the given phase.
func (t *StepTracker) Start(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[phase]++
	t.inFlight.Inc()
}

// End marks the end of one unit of work in the given phase.
func (t *StepTracker) End(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[phase] > 0 {
		t.active[phase]--
		t.inFlight.Dec()
	}
}

// Timer measures elapsed time and observes it into a histogram.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer starts a Timer that will observe into histogram on the
// label set given by labels.
func NewTimer(histogram *prometheus.HistogramVec, labels ...string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram.WithLabelValues(labels...),
	}
}

// ObserveDuration records elapsed time since NewTimer and returns it.
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	t.observer.Observe(duration.Seconds())
	return duration
}
