/*
Package log provides structured logging built on zerolog.

It wraps a single process-wide root logger, configured once via Init,
with child-logger constructors that encode corral's field conventions:
every line names its emitting component, subarray-scoped lines carry
product_id, and node-scoped lines carry host.

	log.Init(log.Config{Level: "info", JSON: true})

	coordLog := log.WithComponent("coordinator")
	coordLog.Info().Str("product_id", "array_1").Msg("conf_complete handled")

	log.WithHost("blpn0").Warn().Msg("status hash missing")

Debug is for step-by-step handler tracing; Info covers every state
transition the coordinator makes; Warn covers recoverable anomalies
(a missing sensor value, a short allocation); Error covers operations
that could not complete. The root logger is usable before Init runs,
writing console output to stderr, so startup faults are never silent.

Child loggers are cheap zerolog With() loggers sharing the parent's
level and writer; creating one per handler invocation is fine. Prefer
structured fields over string concatenation so log aggregation can
filter on them.
*/
package log
