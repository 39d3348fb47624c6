package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Window metrics
	WindowToggles    *prometheus.CounterVec
	WindowsManaged   prometheus.Gauge
	PendingCloses    prometheus.Gauge
	ClosesSuperseded prometheus.Counter

	// Remote execution metrics
	ScriptRuns *prometheus.CounterVec
	BusCalls   *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),
		registry:  reg,

		WindowToggles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wren_window_toggles_total",
				Help: "Total number of window visibility transitions",
			},
			[]string{"window", "visible"},
		),
		WindowsManaged: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wren_windows_managed",
				Help: "Number of windows currently registered",
			},
		),
		PendingCloses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wren_pending_closes",
				Help: "Number of delayed closes currently scheduled",
			},
		),
		ClosesSuperseded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wren_closes_superseded_total",
				Help: "Total number of delayed closes replaced by a newer close request",
			},
		),
		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wren_script_runs_total",
				Help: "Total number of remote script executions by outcome",
			},
			[]string{"outcome"},
		),
		BusCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wren_bus_calls_total",
				Help: "Total number of bus method invocations",
			},
			[]string{"method"},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wren_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Handler returns an HTTP handler exposing the metrics in Prometheus format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordToggle tracks a window visibility transition
func (m *Metrics) RecordToggle(window string, visible bool) {
	if m == nil {
		return
	}
	v := "false"
	if visible {
		v = "true"
	}
	m.WindowToggles.WithLabelValues(window, v).Inc()
}

// RecordScript tracks a script execution outcome
func (m *Metrics) RecordScript(outcome string) {
	if m == nil {
		return
	}
	m.ScriptRuns.WithLabelValues(outcome).Inc()
}

// RecordBusCall tracks a bus method invocation
func (m *Metrics) RecordBusCall(method string) {
	if m == nil {
		return
	}
	m.BusCalls.WithLabelValues(method).Inc()
}

// SetWindows updates the managed window gauge
func (m *Metrics) SetWindows(n int) {
	if m == nil {
		return
	}
	m.WindowsManaged.Set(float64(n))
}

// SetPendingCloses updates the pending close gauge
func (m *Metrics) SetPendingCloses(n int) {
	if m == nil {
		return
	}
	m.PendingCloses.Set(float64(n))
}

// RecordSuperseded tracks a delayed close replaced by a newer request
func (m *Metrics) RecordSuperseded() {
	if m == nil {
		return
	}
	m.ClosesSuperseded.Inc()
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	if m == nil {
		return
	}
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
