package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "doorwatch_"

	resultSuccess = "success"
	resultError   = "error"

	reflectorApplied = "applied"
	reflectorDropped = "dropped"
	reflectorFailed  = "failed"
)

var (
	registerOnce sync.Once

	ingestTotal    *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	broadcastTotal prometheus.Counter
	broadcastSkips prometheus.Counter
	streamClients  *prometheus.GaugeVec

	reflectorUpdates *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		ingestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_messages_total",
				Help: "Total sensor messages by source and result",
			},
			[]string{"source", "result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by source and reason",
			},
			[]string{"source", "reason"},
		)
		broadcastTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_updates_total",
				Help: "Total door updates fanned out",
			},
		)
		broadcastSkips = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_skipped_total",
				Help: "Total deliveries skipped because a subscriber was full",
			},
		)
		streamClients = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_clients",
				Help: "Connected stream clients by transport",
			},
			[]string{"transport"},
		)

		reflectorUpdates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reflector_updates_total",
				Help: "Door updates seen by the reflector by outcome",
			},
			[]string{"outcome"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "log_export_total",
				Help: "Total log exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "log_export_latency_seconds",
				Help:    "Log export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestTotal,
			ingestErrors,
			broadcastTotal,
			broadcastSkips,
			streamClients,
			reflectorUpdates,
			exportTotal,
			exportLatency,
		)
	})
}

// IncIngest counts a sensor message by source and result.
func IncIngest(source, result string) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestTotal != nil {
		ingestTotal.WithLabelValues(source, result).Inc()
	}
}

// IncIngestError increments the ingest error counter.
func IncIngestError(source, reason string) {
	if source == "" {
		source = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(source, reason).Inc()
	}
}

// IncBroadcast counts a fanned out update and the deliveries it skipped.
func IncBroadcast(skipped int) {
	if broadcastTotal != nil {
		broadcastTotal.Inc()
	}
	if skipped > 0 && broadcastSkips != nil {
		broadcastSkips.Add(float64(skipped))
	}
}

// AddStreamClients moves the client gauge for a transport by delta.
func AddStreamClients(transport string, delta int) {
	if transport == "" {
		transport = "unknown"
	}
	if streamClients != nil {
		streamClients.WithLabelValues(transport).Add(float64(delta))
	}
}

// IncReflectorUpdate counts an update outcome in the reflector.
func IncReflectorUpdate(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if reflectorUpdates != nil {
		reflectorUpdates.WithLabelValues(outcome).Inc()
	}
}

// ObserveExport records log export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	ReflectorUpdateApplied = reflectorApplied
	ReflectorUpdateDropped = reflectorDropped
	ReflectorUpdateFailed  = reflectorFailed
)
