/*
Package metrics defines and registers the Prometheus metrics exposed by
corral, and a small Timer helper for recording histogram observations.

Metrics fall into seven groups: pool gauges (HostsTotal, SubarraysTotal),
event bus counters/histograms (EventsReceivedTotal, EventsDroppedTotal,
EventHandleDuration), allocation metrics (AllocationLatency,
AllocationsFailedTotal, HostsReleasedTotal), recording metrics
(PktStartLatency, PktStartOutliersTotal), gateway metrics
(GatewayParamsSentTotal), metadata fetcher metrics (SensorUpdatesTotal,
WebsocketReconnectsTotal), and reconciler metrics
(ReconciliationDuration, ReconciliationCyclesTotal,
InvariantViolationsTotal).

	timer := metrics.NewTimer()
	hosts, err := pool.Allocate(productID, n)
	timer.ObserveDuration(metrics.AllocationLatency)

All metrics are registered at package init via MustRegister, so importing
the package is sufficient to make them visible on Handler()'s
/metrics endpoint.

Doctor serves the /health and /live endpoints: named subsystem checks
(store, event bus, event loop) registered by cmd/corral and run on
demand at request time.
*/
package metrics
