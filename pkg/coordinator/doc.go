/*
Package coordinator is the single-writer core that drives a MeerKAT
subarray's recording lifecycle: it allocates processing nodes on
conf_complete, issues the synchronized PKTSTART on tracking, aborts a
recording on not-tracking, and returns nodes to the free pool on
deconfigure. Dispatch runs over a closed event type (types.Kind) rather
than open-ended string matching on the raw channel/type fields.

One goroutine (Run) consumes events from three subjects -
"lifecycle-alerts", "sensor-alerts", "trigger-control" - in arrival
order and runs each handler to completion before reading the next
event, which is what makes allocation updates atomic without an
explicit lock. The metadata fetcher (pkg/metadata) is a separate
goroutine that only ever talks to the coordinator through these
subjects and the shared store, never by direct call.
*/
package coordinator
