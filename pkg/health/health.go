// Package health reads processing-node gateway status hashes on behalf
// of the coordinator: the PKTIDX counters behind start-index selection
// and the DWELL/DATADIR values the tracking handlers need.
package health

import (
	"fmt"

	"github.com/meerkat-commensal/corral/pkg/types"
)

// StatusStore is the subset of pkg/store a Checker reads from.
type StatusStore interface {
	HostStatus(domain, host string) (types.HostStatus, bool, error)
}

// Checker reads the current status hash for a set of hosts under a fixed
// gateway domain.
type Checker struct {
	store  StatusStore
	domain string
}

// NewChecker creates a Checker bound to one gateway domain (e.g. "bluse").
func NewChecker(store StatusStore, domain string) *Checker {
	return &Checker{store: store, domain: domain}
}

// Status returns the current status hash for host, or an error if the
// node has never reported one.
func (c *Checker) Status(host string) (types.HostStatus, error) {
	status, found, err := c.store.HostStatus(c.domain, host)
	if err != nil {
		return types.HostStatus{}, fmt.Errorf("read status for %s: %w", host, err)
	}
	if !found {
		return types.HostStatus{}, fmt.Errorf("no status reported for %s", host)
	}
	return status, nil
}

// StatusAll reads the status hash for every host in hosts, skipping
// (not erroring on) hosts that have never reported one.
func (c *Checker) StatusAll(hosts []string) map[string]types.HostStatus {
	out := make(map[string]types.HostStatus, len(hosts))
	for _, host := range hosts {
		if status, err := c.Status(host); err == nil {
			out[host] = status
		}
	}
	return out
}

// ActivePktIdx returns the PKTIDX of every host in hosts whose NETSTAT is
// not idle and which reported a PKTIDX, keyed by host name. This is the
// exact input the Start-Index Selector (pkg/startindex) consumes.
func (c *Checker) ActivePktIdx(hosts []string) map[string]int64 {
	out := make(map[string]int64)
	for host, status := range c.StatusAll(hosts) {
		if status.Active() && status.PktIdx != nil {
			out[host] = *status.PktIdx
		}
	}
	return out
}

// Dwell returns the current DWELL value for host, defaulting to 0 if
// the node has no status hash.
func (c *Checker) Dwell(host string) int {
	status, err := c.Status(host)
	if err != nil {
		return 0
	}
	return status.Dwell
}

// DataDirRoot returns the DATADIR root configured on host's status
// hash, defaulting to "buf0" when absent or empty.
func (c *Checker) DataDirRoot(host string) string {
	status, err := c.Status(host)
	if err != nil || status.DataDir == "" {
		return "buf0"
	}
	return status.DataDir
}
