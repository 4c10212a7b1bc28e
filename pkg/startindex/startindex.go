package startindex

import (
	"errors"
	"sort"
)

// DefaultMargin is the safety margin (Δ) applied both to outlier
// detection and to the chosen start index, giving every healthy node
// at least this many packets of slack before recording begins.
const DefaultMargin int64 = 1024

// ErrNoActiveHosts is returned when no host reported an active PKTIDX;
// the caller should log a warning and skip issuing PKTSTART for this
// tracking episode.
var ErrNoActiveHosts = errors.New("startindex: no active processing nodes reported a packet index")

// Result is the outcome of selecting a synchronized start index.
type Result struct {
	PktStart int64
	// Outliers holds the hosts whose PKTIDX fell outside the margin of
	// the median, in no particular order.
	Outliers []string
	// LargeSpread is true when more than half of the reporting hosts
	// were flagged as outliers, a sign PKTSTART itself may be stale.
	LargeSpread bool
}

// Select computes the synchronized PKTSTART for a set of active hosts'
// current PKTIDX values, keyed by host name. margin is the safety
// margin Δ; pass DefaultMargin unless a caller has a reason to differ.
func Select(pktIdx map[string]int64, margin int64) (Result, error) {
	if len(pktIdx) == 0 {
		return Result{}, ErrNoActiveHosts
	}

	hosts := make([]string, 0, len(pktIdx))
	values := make([]int64, 0, len(pktIdx))
	for host, v := range pktIdx {
		hosts = append(hosts, host)
		values = append(values, v)
	}

	median := medianOf(values)

	var outliers []string
	var maxInMargin int64
	haveInMargin := false

	for i, host := range hosts {
		diff := values[i] - median
		if diff < 0 {
			diff = -diff
		}
		if float64(diff) > float64(margin) {
			outliers = append(outliers, host)
			continue
		}
		if !haveInMargin || values[i] > maxInMargin {
			maxInMargin = values[i]
			haveInMargin = true
		}
	}

	result := Result{
		Outliers:    outliers,
		LargeSpread: len(outliers)*2 > len(hosts),
	}

	if !haveInMargin {
		// Every value was flagged as an outlier of its own median; fall
		// back to the largest reported value so a start index is still
		// produced.
		for _, v := range values {
			if v > maxInMargin {
				maxInMargin = v
			}
		}
	}

	result.PktStart = maxInMargin + margin
	return result, nil
}

func medianOf(values []int64) int64 {
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	// Even count: average the two middle values; integer division
	// truncates a half-way midpoint toward zero.
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
