/*
Package metadata is the telescope metadata fetcher. It subscribes to a
websocket sensor API on behalf of each configured subarray, runs
one-shot bounded-retry queries for a fixed set of sensors on configure,
caches the results in the key/value store, and republishes a filtered,
normalized subset of continuous sensor updates onto the event bus for
the coordinator to consume.

The fetcher never calls into the coordinator directly: it communicates
only through pkg/eventbus and pkg/store, the same boundary the
coordinator itself is held to.
*/
package metadata
