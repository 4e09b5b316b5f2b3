// Package observability backs the shell's logging and metrics: a per-tool
// zerolog file under the logs directory plus a Prometheus registry.
package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// Metric names published by the shell.
const (
	MetricRecordsSent    = "sensorshell_records_sent_total"
	MetricRecordsSpooled = "sensorshell_records_spooled_total"
	MetricRecordsLost    = "sensorshell_records_lost_total"
	MetricBatchesSpooled = "sensorshell_batches_spooled_total"
	MetricSendErrors     = "sensorshell_send_errors_total"
	MetricBufferLength   = "sensorshell_buffer_length"
	MetricPutLatency     = "sensorshell_put_latency_seconds"
)

// Telemetry implements ports.Observability with a zerolog file logger and a
// name-keyed set of Prometheus collectors on a private registry, so several
// shells can coexist in one process.
type Telemetry struct {
	logger   zerolog.Logger
	file     *rotatingFile
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer

	closeOnce sync.Once
	closeErr  error
}

// New opens (or creates) <logDir>/<tool>.log and registers the shell's
// collectors. The level string accepts the config vocabulary (DEBUG, INFO,
// WARNING, SEVERE) as well as zerolog's own level names.
func New(logDir, tool, level string) (*Telemetry, error) {
	file, err := openRotating(logDir, tool)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(file).
		Level(parseLevel(level)).
		With().Timestamp().Str("tool", tool).
		Logger()

	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRecordsSent,
		Help: "Records acknowledged by the ingestion server.",
	})
	spooled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRecordsSpooled,
		Help: "Records diverted to the offline spool.",
	})
	lost := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRecordsLost,
		Help: "Records dropped because caching is disabled or the spool write failed.",
	})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricBatchesSpooled,
		Help: "Batches written to the offline spool.",
	})
	sendErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSendErrors,
		Help: "Failed batch uploads.",
	})
	bufferLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricBufferLength,
		Help: "Records currently buffered in memory.",
	})
	putLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricPutLatency,
		Help:    "Latency of batch uploads to the ingestion server.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(sent, spooled, lost, batches, sendErrors, bufferLen, putLatency)

	return &Telemetry{
		logger:   logger,
		file:     file,
		registry: registry,
		counters: map[string]prometheus.Counter{
			MetricRecordsSent:    sent,
			MetricRecordsSpooled: spooled,
			MetricRecordsLost:    lost,
			MetricBatchesSpooled: batches,
			MetricSendErrors:     sendErrors,
		},
		gauges: map[string]prometheus.Gauge{
			MetricBufferLength: bufferLen,
		},
		histos: map[string]prometheus.Observer{
			MetricPutLatency: putLatency,
		},
	}, nil
}

// Registry exposes the collectors for the optional /metrics endpoint.
func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

func (t *Telemetry) LogDebug(msg string, fields ...ports.Field) {
	applyFields(t.logger.Debug(), fields).Msg(msg)
}

func (t *Telemetry) LogInfo(msg string, fields ...ports.Field) {
	applyFields(t.logger.Info(), fields).Msg(msg)
}

func (t *Telemetry) LogWarn(msg string, fields ...ports.Field) {
	applyFields(t.logger.Warn(), fields).Msg(msg)
}

func (t *Telemetry) LogError(msg string, err error, fields ...ports.Field) {
	applyFields(t.logger.Error().Err(err), fields).Msg(msg)
}

func (t *Telemetry) IncCounter(name string, v float64) {
	if c, ok := t.counters[name]; ok {
		c.Add(v)
	}
}

func (t *Telemetry) SetGauge(name string, v float64) {
	if g, ok := t.gauges[name]; ok {
		g.Set(v)
	}
}

func (t *Telemetry) ObserveLatency(name string, seconds float64) {
	if h, ok := t.histos[name]; ok {
		h.Observe(seconds)
	}
}

// Close releases the log file. Safe to call more than once; the shell and
// the multi-shell's children may share one instance.
func (t *Telemetry) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.file.Close()
	})
	return t.closeErr
}

func applyFields(ev *zerolog.Event, fields []ports.Field) *zerolog.Event {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	return ev
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "FINEST", "FINER", "FINE", "DEBUG", "ALL":
		return zerolog.DebugLevel
	case "WARNING", "WARN":
		return zerolog.WarnLevel
	case "SEVERE", "ERROR":
		return zerolog.ErrorLevel
	case "OFF":
		return zerolog.Disabled
	case "", "CONFIG", "INFO":
		return zerolog.InfoLevel
	}
	if lv, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		return lv
	}
	return zerolog.InfoLevel
}

var _ ports.Observability = (*Telemetry)(nil)

// Nop returns an Observability that discards everything. Used by tests and
// by callers that bring their own logging.
func Nop() ports.Observability { return nopTelemetry{} }

type nopTelemetry struct{}

func (nopTelemetry) LogDebug(string, ...ports.Field)        {}
func (nopTelemetry) LogInfo(string, ...ports.Field)         {}
func (nopTelemetry) LogWarn(string, ...ports.Field)         {}
func (nopTelemetry) LogError(string, error, ...ports.Field) {}
func (nopTelemetry) IncCounter(string, float64)             {}
func (nopTelemetry) SetGauge(string, float64)               {}
func (nopTelemetry) ObserveLatency(string, float64)         {}
func (nopTelemetry) Close() error                           { return nil }
