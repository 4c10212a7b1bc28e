/*
Package gateway is the coordinator's only path for talking to a
processing node: it formats a parameter as a hashpipe-status-style
"KEY=VALUE" line, publishes it to the node's per-host subject (and, for
fleet-wide parameters, to every node at once), and mirrors the value
into the store so a node that reconnects late can be caught up without
replaying the whole event history.

Reading a node's current state is not this package's job — a status
hash is something the node itself publishes, and pkg/health reads it
back out of the same store. gateway only ever writes.
*/
package gateway
