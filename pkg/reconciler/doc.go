/*
Package reconciler periodically verifies the free/allocated host pool
partition: the free pool and the per-subarray allocation lists never
contain a host twice between them.

At startup the stored pool is trusted as ground truth (the configured
node list seeds it only when the store has none); the reconciler then
runs continuously to catch drift in the stored free and allocated
lists. Allocate and Release each rewrite both lists inside one store
transaction.

The reconciler never reallocates or reassigns hosts itself; it only logs
and counts violations via metrics.InvariantViolationsTotal. A crash
severe enough to leave half-written state is something for an operator
to look at, not something to paper over automatically, since the wrong
guess could interrupt a subarray that is still recording.
*/
package reconciler
