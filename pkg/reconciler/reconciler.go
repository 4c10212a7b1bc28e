// Package reconciler periodically re-verifies the free/allocated host
// pool partition: no host is in the free pool and an allocation at once,
// and no host is in more than one subarray's allocation.
package reconciler

import (
	"sync"
	"time"

	"github.com/meerkat-commensal/corral/pkg/log"
	"github.com/meerkat-commensal/corral/pkg/metrics"
	"github.com/meerkat-commensal/corral/pkg/types"
	"github.com/rs/zerolog"
)

// Store is the subset of pkg/store needed to reconcile pool state.
type Store interface {
	FreeHosts() ([]string, error)
	ListSubarrays() ([]*types.Subarray, error)
	AllocatedHosts(productID string) ([]string, error)
}

// Reconciler checks that no host sits in two places at once: the free
// pool and a subarray's allocation list, or two subarrays' allocation
// lists. A host that has dropped out of every list is not detected,
// since the store keeps no separate record of known hosts. It never
// corrects drift itself - a crash severe enough to
// leave half-written allocation state is something for an operator to
// look at, not something to paper over automatically, since the wrong
// guess could interrupt a subarray that is still recording.
type Reconciler struct {
	store    Store
	logger   zerolog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
	interval time.Duration
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(s Store) *Reconciler {
	return &Reconciler{
		store:    s,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
		interval: 10 * time.Second,
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			if err := r.reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation cycle failed")
			}
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

func (r *Reconciler) reconcile() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.checkPartitionInvariant()
}

// checkPartitionInvariant verifies that no host appears in the free pool
// and in a subarray's allocation at the same time, and that no host is
// claimed by two subarrays simultaneously. It logs (without mutating) any
// violation found.
func (r *Reconciler) checkPartitionInvariant() error {
	free, err := r.store.FreeHosts()
	if err != nil {
		return err
	}
	subs, err := r.store.ListSubarrays()
	if err != nil {
		return err
	}

	freeSet := make(map[string]bool, len(free))
	for _, h := range free {
		freeSet[h] = true
	}

	owner := make(map[string]string) // host -> product_id claiming it
	for _, sub := range subs {
		allocated, err := r.store.AllocatedHosts(sub.ProductID)
		if err != nil {
			r.logger.Error().Err(err).Str("product_id", sub.ProductID).Msg("failed to read allocation")
			continue
		}

		for _, host := range allocated {
			if existing, ok := owner[host]; ok {
				r.logger.Error().
					Str("host", host).
					Str("product_id_1", existing).
					Str("product_id_2", sub.ProductID).
					Msg("host allocated to two subarrays simultaneously")
				metrics.InvariantViolationsTotal.Inc()
				continue
			}
			owner[host] = sub.ProductID

			if freeSet[host] {
				r.logger.Error().
					Str("host", host).
					Str("product_id", sub.ProductID).
					Msg("host present in free pool and in an allocation simultaneously")
				metrics.InvariantViolationsTotal.Inc()
			}
		}
	}

	return nil
}
