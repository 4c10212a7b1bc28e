package coordinator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meerkat-commensal/corral/pkg/types"
)

// formatFloat17 renders v with 17 significant digits (C-locale "%.17g"
// form), used for CHAN_BW and FECENTER so downstream header parsers see
// bit-exact values.
func formatFloat17(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// formatBitmask renders a binary-string mask (e.g. "1011") as the
// gateway's "#<hex>" bitmask form.
func formatBitmask(binary string) (string, error) {
	v, err := strconv.ParseUint(binary, 2, 64)
	if err != nil {
		return "", fmt.Errorf("parse data-suspect mask %q: %w", binary, err)
	}
	return fmt.Sprintf("#%x", v), nil
}

// nextTriggerMode computes the trigger mode transition applied after a
// tracking episode: armed reverts to idle, nshot:k decrements (to idle
// once it reaches zero), and auto is left unchanged. auto intentionally
// has no counter to decrement — this is an explicit decision, not an
// omission.
func nextTriggerMode(mode types.TriggerMode) types.TriggerMode {
	switch {
	case mode == types.TriggerModeArmed:
		return types.TriggerModeIdle
	case mode == types.TriggerModeAuto:
		return mode
	case strings.HasPrefix(string(mode), types.NShotPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(string(mode), types.NShotPrefix))
		if err != nil {
			return types.TriggerModeIdle
		}
		n--
		if n <= 0 {
			return types.TriggerModeIdle
		}
		return types.TriggerMode(fmt.Sprintf("%s%d", types.NShotPrefix, n))
	default:
		return mode
	}
}

// streamURL resolves the wideband F-engine stream's multicast
// descriptor out of a subarray's stream map. It tries the keyed form
// streams[StreamType][FengType] first and falls back to the first
// value found under streams[StreamType], since some CBF configurations
// only expose a single nameless stream for a given type.
func streamURL(streams map[string]map[string]string) (string, bool) {
	byType, ok := streams[types.StreamType]
	if !ok || len(byType) == 0 {
		return "", false
	}
	if url, ok := byType[types.FengType]; ok {
		return url, true
	}
	for _, url := range byType {
		return url, true
	}
	return "", false
}

// dataDirPath converts a schedule-block identifier ("YYYYMMDD-XXXX") to
// its DATADIR path form ("YYYYMMDD/XXXX"), falling back to a
// placeholder when no schedule block is known.
func dataDirPath(scheduleBlocksCSV string) string {
	if scheduleBlocksCSV == "" {
		return "Unknown_SB"
	}
	first := strings.SplitN(scheduleBlocksCSV, ",", 2)[0]
	first = strings.TrimSpace(first)
	if first == "" {
		return "Unknown_SB"
	}
	return strings.ReplaceAll(first, "-", "/")
}
