/*
Package streamplan apportions a subarray's multicast SPEAD stream group
across its allocated processing nodes. Given a descriptor URL of the
form "spead://<addr0>+<N>:<port>" it fills nodes sequentially up to a
fixed per-node capacity. The partition is a pure function so its
properties (every stream assigned to at most one node, no host handed
more than its capacity) can be tested directly.

BuildPlan never mutates anything and makes no I/O calls; pkg/coordinator
is the only caller, and only it talks to pkg/gateway with the result.
*/
package streamplan
