/*
Package types defines the core data structures shared across the
coordinator, the metadata fetcher, and the store.

These are domain nouns, not wire formats: Subarray tracks one configured
MeerKAT subarray's recording state, HostStatus is the minimum a
processing node's gateway status hash must carry, and Event/Kind are the
closed tagged union the coordinator dispatches on.

# Host Pool

Processing nodes are opaque names; the store (not this package) is the
source of truth for which are free, which are allocated to a subarray,
and which have never been registered. A host's own liveness —
NETSTAT/PKTIDX/DWELL/DATADIR — is reported in its gateway status hash
and represented here as HostStatus.

# Subarray Lifecycle

A Subarray is created on conf_complete and destroyed on deconfigure.
TriggerMode governs whether a tracking event leads to a recording
(idle/auto/armed/nshot:<k>); Tracking transitions only on edges
(tracking_start only when false, tracking_stop only when true).

# Thread Safety

Values in this package carry no synchronization themselves. The
coordinator owns all mutation from its single event loop; the store
package is responsible for serializing reads and writes that cross
goroutine boundaries.
*/
package types
