package coordinator

import (
	"errors"
	"strings"

	"github.com/meerkat-commensal/corral/pkg/types"
)

// Subjects the coordinator consumes.
const (
	SubjectLifecycle = "lifecycle-alerts"
	SubjectSensor    = "sensor-alerts"
	SubjectTrigger   = "trigger-control"
)

// ErrMalformedEvent is returned when a payload has fewer than the two
// colon-delimited fields every recognized event requires.
var ErrMalformedEvent = errors.New("coordinator: malformed event payload")

// ParseEvent parses one raw payload into a normalized Event; the subject
// it arrived on is not an input.
// Payloads are colon-delimited "<type>:<description>[:<value>]"
// strings, split into at most three fields.
//
// pos_request_base pointing updates carry product_id in the type field
// and the sensor name in the description; ParseEvent normalizes that
// asymmetry away so Event.ProductID always means the same thing
// regardless of which subject an event arrived on.
func ParseEvent(raw string) (types.Event, error) {
	fields := strings.SplitN(raw, ":", 3)
	if len(fields) < 2 {
		return types.Event{}, ErrMalformedEvent
	}

	typ, description := fields[0], fields[1]
	value := ""
	if len(fields) == 3 {
		value = fields[2]
	}

	switch {
	case typ == "conf_complete":
		return types.Event{Kind: types.KindConfComplete, ProductID: description}, nil
	case typ == "deconfigure":
		return types.Event{Kind: types.KindDeconfigure, ProductID: description}, nil
	case typ == "tracking":
		return types.Event{Kind: types.KindTracking, ProductID: description}, nil
	case typ == "not-tracking":
		return types.Event{Kind: types.KindNotTracking, ProductID: description}, nil
	case typ == "data-suspect":
		return types.Event{Kind: types.KindDataSuspect, ProductID: description, Mask: value}, nil
	case typ == "coordinator" && description == "trigger_mode":
		return types.Event{Kind: types.KindTriggerMode, Value: value}, nil
	case strings.Contains(description, "pos_request_base"):
		// type carries product_id here; description carries the axis.
		return types.Event{
			Kind:      types.KindPointing,
			ProductID: typ,
			Axis:      parseAxis(description),
			Value:     value,
		}, nil
	default:
		return types.Event{Kind: types.KindUnknown, ProductID: description, Value: value}, nil
	}
}

func parseAxis(description string) types.PointingAxis {
	switch {
	case strings.Contains(description, "dec"):
		return types.PointingDec
	case strings.Contains(description, "ra"):
		return types.PointingRA
	case strings.Contains(description, "azim"):
		return types.PointingAzim
	case strings.Contains(description, "elev"):
		return types.PointingElev
	default:
		return ""
	}
}
