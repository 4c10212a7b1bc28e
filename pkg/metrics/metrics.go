package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool metrics
	HostsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corral_hosts_total",
			Help: "Total number of processing nodes by status",
		},
		[]string{"status"},
	)

	SubarraysTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corral_subarrays_total",
			Help: "Total number of configured subarrays",
		},
	)

	// Event bus metrics
	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_events_received_total",
			Help: "Total number of lifecycle events received, by kind",
		},
		[]string{"kind"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_events_dropped_total",
			Help: "Total number of events that failed to parse or handle",
		},
		[]string{"kind", "reason"},
	)

	EventHandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corral_event_handle_duration_seconds",
			Help:    "Time taken to handle one lifecycle event in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Allocation metrics
	AllocationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corral_allocation_latency_seconds",
			Help:    "Time taken to allocate hosts for a conf_complete request",
			Buckets: prometheus.DefBuckets,
		},
	)

	AllocationsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_allocations_failed_total",
			Help: "Total number of allocation attempts that failed (pool exhausted)",
		},
	)

	HostsReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_hosts_released_total",
			Help: "Total number of hosts returned to the free pool",
		},
	)

	// Recording start metrics
	PktStartLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corral_pkt_start_latency_seconds",
			Help:    "Time taken to compute a synchronized recording-start packet index",
			Buckets: prometheus.DefBuckets,
		},
	)

	PktStartOutliersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_pkt_start_outliers_total",
			Help: "Total number of per-host packet counts discarded as outliers when computing PKTSTART",
		},
	)

	// Gateway metrics
	GatewayParamsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_gateway_params_sent_total",
			Help: "Total number of KEY=VALUE parameters published to the gateway",
		},
		[]string{"key"},
	)

	// Metadata fetcher metrics
	SensorUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_sensor_updates_total",
			Help: "Total number of telescope sensor updates received, by classification",
		},
		[]string{"class"},
	)

	WebsocketReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_websocket_reconnects_total",
			Help: "Total number of times the metadata fetcher re-dialed its sensor websocket",
		},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corral_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	InvariantViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_invariant_violations_total",
			Help: "Total number of free/allocated pool invariant violations detected by the reconciler",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HostsTotal,
		SubarraysTotal,
		EventsReceivedTotal,
		EventsDroppedTotal,
		EventHandleDuration,
		AllocationLatency,
		AllocationsFailedTotal,
		HostsReleasedTotal,
		PktStartLatency,
		PktStartOutliersTotal,
		GatewayParamsSentTotal,
		SensorUpdatesTotal,
		WebsocketReconnectsTotal,
		ReconciliationDuration,
		ReconciliationCyclesTotal,
		InvariantViolationsTotal,
	)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
