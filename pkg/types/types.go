package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TriggerMode controls whether a tracking event leads to a recording.
//
//   - idle:      PKTSTART is never issued.
//   - auto:      PKTSTART is issued on every tracking event.
//   - armed:     PKTSTART is issued once, then the mode reverts to idle.
//   - nshot:<k>: PKTSTART is issued for the next k tracking events, then idle.
type TriggerMode string

const (
	TriggerModeIdle  TriggerMode = "idle"
	TriggerModeAuto  TriggerMode = "auto"
	TriggerModeArmed TriggerMode = "armed"
)

// NShotPrefix is the prefix of a bounded trigger mode, e.g. "nshot:3".
const NShotPrefix = "nshot:"

// ParseTriggerMode validates a trigger mode string as accepted by the
// CLI's -t/--triggermode flag and the trigger-control event handler:
// idle, auto, armed, or nshot:<k> for a positive integer k.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch TriggerMode(s) {
	case TriggerModeIdle, TriggerModeAuto, TriggerModeArmed:
		return TriggerMode(s), nil
	}
	if strings.HasPrefix(s, NShotPrefix) {
		k, err := strconv.Atoi(strings.TrimPrefix(s, NShotPrefix))
		if err != nil || k <= 0 {
			return "", fmt.Errorf("invalid nshot count in trigger mode %q", s)
		}
		return TriggerMode(s), nil
	}
	return "", fmt.Errorf("invalid trigger mode %q: want idle, auto, armed, or nshot:<k>", s)
}

// Subarray is a single configured MeerKAT subarray and the state the
// coordinator needs to drive its recording lifecycle. It is created on
// conf_complete, updated throughout its life, and destroyed on deconfigure.
type Subarray struct {
	ProductID string

	Antennas  []string
	NChannels int
	// Streams maps stream type (e.g. "cbf.antenna_channelised_voltage") to
	// F-engine mode name (e.g. "wide.antenna-channelised-voltage") to the
	// spead:// multicast descriptor.
	Streams  map[string]map[string]string
	IPOffset int

	TriggerMode TriggerMode
	Tracking    bool

	ScheduleBlocks []string

	LastCaptureStart time.Time
	LastTarget       time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HostStatus mirrors the minimum fields the coordinator reads out of a
// processing node's gateway status hash.
type HostStatus struct {
	NetStat string // idle | LISTEN | RECORD
	PktIdx  *int64 // nil when absent
	Dwell   int
	DataDir string
}

// Active reports whether the node is currently listening for or recording
// a stream (NETSTAT != idle).
func (h HostStatus) Active() bool {
	return h.NetStat != "" && h.NetStat != "idle"
}

// Kind is the closed set of lifecycle/sensor event kinds the coordinator
// dispatches on. Replaces open-ended string matching on the raw event type.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfComplete
	KindDeconfigure
	KindTracking
	KindNotTracking
	KindDataSuspect
	KindPointing
	KindTriggerMode
)

func (k Kind) String() string {
	switch k {
	case KindConfComplete:
		return "conf_complete"
	case KindDeconfigure:
		return "deconfigure"
	case KindTracking:
		return "tracking"
	case KindNotTracking:
		return "not-tracking"
	case KindDataSuspect:
		return "data-suspect"
	case KindPointing:
		return "pointing"
	case KindTriggerMode:
		return "trigger_mode"
	default:
		return "unknown"
	}
}

// PointingAxis identifies which pointing quantity an Event carries.
type PointingAxis string

const (
	PointingRA   PointingAxis = "ra"
	PointingDec  PointingAxis = "dec"
	PointingAzim PointingAxis = "azim"
	PointingElev PointingAxis = "elev"
)

// Event is the coordinator's normalized representation of one message off
// lifecycle-alerts, sensor-alerts, or trigger-control. ParseEvent in
// pkg/coordinator builds these from the wire "<type>:<description>[:<value>]"
// format, moving the pos_request_base product ID out of the raw type field
// so every Event exposes a uniform ProductID regardless of origin channel.
type Event struct {
	Kind      Kind
	ProductID string
	Axis      PointingAxis // set only when Kind == KindPointing
	Mask      string       // set only when Kind == KindDataSuspect
	Value     string       // raw value field, meaning depends on Kind
}
