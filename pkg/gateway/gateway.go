package gateway

import (
	"fmt"

	"github.com/meerkat-commensal/corral/pkg/eventbus"
	"github.com/meerkat-commensal/corral/pkg/metrics"
)

// ValueStore is the subset of pkg/store a Gateway mirrors published
// parameters into.
type ValueStore interface {
	PutGatewayValue(domain, host, key, value string) error
}

// Gateway publishes hashpipe-status KEY=VALUE parameters to processing
// nodes over the event bus and mirrors every value into the store.
type Gateway struct {
	bus    eventbus.Bus
	store  ValueStore
	domain string
}

// New creates a Gateway that addresses nodes under the given gateway
// domain (e.g. "bluse").
func New(bus eventbus.Bus, store ValueStore, domain string) *Gateway {
	return &Gateway{bus: bus, store: store, domain: domain}
}

// HostSubject is the per-node channel a single node's hashpipe
// instances subscribe to, the NATS form of the Hashpipe-Redis gateway's
// "<domain>://<host>/set" convention.
func HostSubject(domain, host string) string {
	return fmt.Sprintf("gateway.%s.%s.set", domain, host)
}

// FleetSubject is the fleet-wide channel every node under domain
// subscribes to in addition to its own ("<domain>:///set" in the
// Hashpipe-Redis gateway convention).
func FleetSubject(domain string) string {
	return fmt.Sprintf("gateway.%s.set", domain)
}

// Publish mirrors KEY=VALUE into the store, then sends it to host's
// channel. The mirror write lands first so a node that restarts mid-way
// through a burst of publishes can reconstruct its last known state from
// the store rather than missing whatever was in flight.
func (g *Gateway) Publish(host, key string, value string) error {
	if err := g.store.PutGatewayValue(g.domain, host, key, value); err != nil {
		return fmt.Errorf("mirror %s for %s: %w", key, host, err)
	}
	line := fmt.Sprintf("%s=%s", key, value)
	if err := g.bus.Publish(HostSubject(g.domain, host), []byte(line)); err != nil {
		return fmt.Errorf("publish %s to %s: %w", key, host, err)
	}
	metrics.GatewayParamsSentTotal.WithLabelValues(key).Inc()
	return nil
}

// PublishAll publishes KEY=VALUE to every host in hosts, collecting
// (not aborting on) any per-host failures so one unreachable node
// cannot prevent the rest of the band from receiving the parameter.
// This is how the coordinator addresses a stream plan's node list.
func (g *Gateway) PublishAll(hosts []string, key, value string) []error {
	var errs []error
	for _, host := range hosts {
		if err := g.Publish(host, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// PublishFleet sends KEY=VALUE to every node under the domain at once,
// without mirroring per host: fleet-wide parameters are not part of
// any single subarray's allocation, so there is no per-host record to
// keep current.
func (g *Gateway) PublishFleet(key, value string) error {
	line := fmt.Sprintf("%s=%s", key, value)
	if err := g.bus.Publish(FleetSubject(g.domain), []byte(line)); err != nil {
		return fmt.Errorf("publish fleet %s: %w", key, err)
	}
	metrics.GatewayParamsSentTotal.WithLabelValues(key).Inc()
	return nil
}
