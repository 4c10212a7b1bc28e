// Package config loads corral's YAML configuration file: the processing
// node pool, per-node stream capacity, transport endpoints, and the
// telescope sensor-subscription lists the metadata fetcher drives its
// configure-time queries and continuous subscriptions from.
package config
