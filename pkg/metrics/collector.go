package metrics

import "time"

// HostLister is satisfied by the store; kept minimal so metrics doesn't
// import the store package directly and create an import cycle.
type HostLister interface {
	ListHostStatuses() (map[string]int, error) // status -> count
}

// SubarrayCounter reports the number of configured subarrays.
type SubarrayCounter interface {
	CountSubarrays() (int, error)
}

// Collector periodically samples pool and subarray gauges from the store.
type Collector struct {
	hosts     HostLister
	subarrays SubarrayCounter
	stopCh    chan struct{}
}

// NewCollector creates a new metrics collector over the given store views.
func NewCollector(hosts HostLister, subarrays SubarrayCounter) *Collector {
	return &Collector{
		hosts:     hosts,
		subarrays: subarrays,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if counts, err := c.hosts.ListHostStatuses(); err == nil {
		for status, n := range counts {
			HostsTotal.WithLabelValues(status).Set(float64(n))
		}
	}

	if n, err := c.subarrays.CountSubarrays(); err == nil {
		SubarraysTotal.Set(float64(n))
	}
}
