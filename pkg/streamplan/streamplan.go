package streamplan

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrOctetOverflow is returned when the fill-first partition would need
// to address past the last octet's maximum value of 255, rather than
// silently wrapping into the next /24.
var ErrOctetOverflow = errors.New("streamplan: multicast address octet overflow")

// Group is one node's slice of the multicast stream group, expressed in
// the same "<addr>+<count>" shorthand the gateway's DESTIP parameter
// uses, where count is the number of addresses past addr (so the group
// spans count+1 addresses total).
type Group struct {
	Addr  string
	Count int
}

// NAddrs is the number of multicast addresses this group spans.
func (g Group) NAddrs() int { return g.Count + 1 }

// Descriptor renders the group as "<addr>+<count>", ready to publish as
// a node's DESTIP.
func (g Group) Descriptor() string {
	return fmt.Sprintf("%s+%d", g.Addr, g.Count)
}

// Plan is the result of apportioning one stream descriptor URL across
// processing nodes.
type Plan struct {
	Port       string
	TotalAddrs int // N+1 from the URL, before offset is applied
	Dropped    int // streams that fit in no node's capacity
	Groups     []Group
}

// BuildPlan parses a "spead://<addr0>+<n>:<port>" descriptor (or the
// degenerate single-address "spead://<addr>:<port>" form) and
// apportions it fill-first across up to nGroups nodes of
// streamsPerInstance capacity each, skipping the first offset
// addresses.
//
// The degenerate form always yields a single <addr>+0 group and ignores
// nGroups/streamsPerInstance/offset, since there is nothing to
// apportion.
func BuildPlan(url string, nGroups, streamsPerInstance, offset int) (*Plan, error) {
	addrPart, port, err := splitURL(url)
	if err != nil {
		return nil, err
	}

	addr0, n, degenerate := splitCount(addrPart)
	if degenerate {
		return &Plan{Port: port, TotalAddrs: 1, Groups: []Group{{Addr: addr0, Count: 0}}}, nil
	}

	prefix, suffix0, err := splitOctet(addr0)
	if err != nil {
		return nil, err
	}
	suffix0 += offset

	total := n - offset
	plan := &Plan{Port: port, TotalAddrs: n}
	if total <= 0 {
		return plan, nil
	}

	if total > nGroups*streamsPerInstance {
		plan.Dropped = total - nGroups*streamsPerInstance
		for i := 0; i < nGroups; i++ {
			group, next, err := nextGroup(prefix, suffix0, streamsPerInstance-1)
			if err != nil {
				return nil, err
			}
			plan.Groups = append(plan.Groups, group)
			suffix0 = next
		}
		return plan, nil
	}

	nInstances := int(math.Ceil(float64(total) / float64(streamsPerInstance)))
	for i := 0; i < nInstances-1; i++ {
		group, next, err := nextGroup(prefix, suffix0, streamsPerInstance-1)
		if err != nil {
			return nil, err
		}
		plan.Groups = append(plan.Groups, group)
		suffix0 = next
	}

	lastCount := total - (nInstances-1)*streamsPerInstance - 1
	group, _, err := nextGroup(prefix, suffix0, lastCount)
	if err != nil {
		return nil, err
	}
	plan.Groups = append(plan.Groups, group)

	return plan, nil
}

// SChan returns the absolute starting channel for group i of p, given
// the global offset and the number of channels per stream substream
// (HNCHAN). It sums the actual stream counts of every preceding group
// rather than assuming every node received the full per-node capacity,
// so it stays correct when the final group is a partial band.
func (p *Plan) SChan(i, offset, hnchan int) int {
	streams := offset
	for j := 0; j < i; j++ {
		streams += p.Groups[j].NAddrs()
	}
	return streams * hnchan
}

// nextGroup builds the group starting at suffix0 spanning count+1
// addresses, and returns the next unused suffix.
func nextGroup(prefix string, suffix0, count int) (Group, int, error) {
	if suffix0 > 255 || suffix0+count > 255 {
		return Group{}, 0, ErrOctetOverflow
	}
	return Group{Addr: fmt.Sprintf("%s.%d", prefix, suffix0), Count: count}, suffix0 + count + 1, nil
}

func splitURL(url string) (addrPart, port string, err error) {
	trimmed := url
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("streamplan: malformed stream URL %q", url)
	}
	return parts[0], parts[1], nil
}

func splitCount(addrPart string) (addr0 string, n int, degenerate bool) {
	idx := strings.Index(addrPart, "+")
	if idx < 0 {
		return addrPart, 1, true
	}
	cnt, err := strconv.Atoi(addrPart[idx+1:])
	if err != nil {
		return addrPart, 1, true
	}
	return addrPart[:idx], cnt + 1, false
}

func splitOctet(addr string) (prefix string, suffix int, err error) {
	idx := strings.LastIndex(addr, ".")
	if idx < 0 {
		return "", 0, fmt.Errorf("streamplan: malformed multicast address %q", addr)
	}
	suffix, err = strconv.Atoi(addr[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("streamplan: malformed multicast address %q: %w", addr, err)
	}
	return addr[:idx], suffix, nil
}
