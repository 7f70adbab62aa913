// Package metrics exposes counters for info record loads and saves. The
// CLI is short-lived, so metrics are written to a node_exporter textfile
// instead of being served.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"grimm.is/rplinfo/internal/infofile"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all rplinfo metrics.
type Registry struct {
	reg *prometheus.Registry

	// Record I/O
	RecordLoads *prometheus.CounterVec
	RecordSaves *prometheus.CounterVec
	SaveLatency *prometheus.HistogramVec
	LastSave    *prometheus.GaugeVec

	// Extension block
	SkippedKeys   *prometheus.CounterVec
	DefaultFields *prometheus.GaugeVec

	// Config
	ConfigReload *prometheus.CounterVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = New()
	})
	return registry
}

// New returns a registry backed by its own prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	r := &Registry{reg: reg}

	r.RecordLoads = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rplinfo_record_loads_total",
		Help: "Info record loads by record kind and result",
	}, []string{"channel", "record", "result"})

	r.RecordSaves = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rplinfo_record_saves_total",
		Help: "Info record saves by record kind and result",
	}, []string{"channel", "record", "result"})

	r.SaveLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rplinfo_save_duration_seconds",
		Help:    "Time to durably replace an info record",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"backend"})

	r.LastSave = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rplinfo_last_save_timestamp_seconds",
		Help: "Unix timestamp of the last successful save",
	}, []string{"channel", "record"})

	r.SkippedKeys = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rplinfo_extension_skipped_keys_total",
		Help: "Extension block lines ignored on load",
	}, []string{"channel", "reason"})

	r.DefaultFields = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rplinfo_default_fields",
		Help: "Master info fields following the server options",
	}, []string{"channel"})

	r.ConfigReload = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rplinfo_config_reloads_total",
		Help: "Configuration reloads by result",
	}, []string{"result"})

	return r
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveExtension records what a master info load skipped.
func (r *Registry) ObserveExtension(channel string, report infofile.ExtensionReport) {
	if report.Unknown > 0 {
		r.SkippedKeys.WithLabelValues(channel, "unknown").Add(float64(report.Unknown))
	}
	if report.Duplicate > 0 {
		r.SkippedKeys.WithLabelValues(channel, "duplicate").Add(float64(report.Duplicate))
	}
	if report.Overlong > 0 {
		r.SkippedKeys.WithLabelValues(channel, "overlong").Add(float64(report.Overlong))
	}
}

// Result converts an error to a result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// WriteTextfile writes every metric to path in the text exposition format,
// replacing the file atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
