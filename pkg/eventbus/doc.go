/*
Package eventbus is the publish/subscribe transport the coordinator and
metadata fetcher use to exchange lifecycle and sensor events. It wraps
NATS for production use, with an in-memory implementation for tests.

The coordinator consumes three flat, literal subjects:
"lifecycle-alerts", "sensor-alerts", and "trigger-control" (see
pkg/coordinator). Every message on these subjects is a colon-delimited
"<type>:<description>[:<value>]" string; subjects are not namespaced
per product_id, since product_id already rides inside the payload.

Subjects addressing processing nodes are namespaced per host instead
(see pkg/gateway's "gateway.<domain>.<host>.set" and
"gateway.<domain>.set"), since those really do need independent delivery
per listener.

NatsBus dials a real NATS server. MemoryBus is a same-process
implementation used by coordinator and metadata tests: it supports the
same "*"/">" wildcard syntax so tests exercise the real subject
patterns instead of a simplified stand-in.
*/
package eventbus
