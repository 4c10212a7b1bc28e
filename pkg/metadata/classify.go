package metadata

import (
	"fmt"
	"strings"
)

// updateKind classifies one continuous sensor update by what the
// fetcher does with it.
type updateKind int

const (
	updateNone updateKind = iota
	updateDataSuspect
	updateTracking
	updateNotTracking
	updatePosRequestBase
	updateTarget
	updateUnsubscribe
)

// updateAction is the outcome of classifying one continuous sensor
// update, decoupled from any websocket or bus type so classify can be
// unit tested as a pure function.
type updateAction struct {
	Kind updateKind
	// Value is the mask (data-suspect) or the raw sensor value
	// (pos_request_base/target).
	Value string
	// SensorName is the CAM sensor name, carried through unmodified for
	// pos_request_base/target payloads (they wire-encode as
	// "<product_id>:<sensor_name>:<value>").
	SensorName string
}

// substrings classify matches a CAM sensor name against, rather than an
// exact-name switch, since real sensor names are always prefixed
// per-antenna/per-component ("m001_activity", "subarray_1_script_status", ...).
const (
	substrDataSuspect  = "data_suspect"
	substrActivity     = "activity"
	substrPosReqBase   = "pos_request_base"
	substrTarget       = "target"
	substrScriptStatus = "script_status"
)

// classify decides, for one CAM sensor update (name, value, and CAM
// status string), what the fetcher does with it.
func classify(sensorName, value, status string) updateAction {
	switch {
	case strings.Contains(sensorName, substrDataSuspect):
		if status != "nominal" {
			return updateAction{Kind: updateNone}
		}
		return updateAction{Kind: updateDataSuspect, Value: value}

	case strings.Contains(sensorName, substrActivity):
		if value == "track" {
			return updateAction{Kind: updateTracking}
		}
		return updateAction{Kind: updateNotTracking}

	case strings.Contains(sensorName, substrPosReqBase):
		return updateAction{Kind: updatePosRequestBase, SensorName: sensorName, Value: value}

	case strings.Contains(sensorName, substrTarget):
		return updateAction{Kind: updateTarget, SensorName: sensorName, Value: value}

	case strings.Contains(sensorName, substrScriptStatus):
		if value != "busy" {
			return updateAction{Kind: updateUnsubscribe}
		}
		return updateAction{Kind: updateNone}

	default:
		return updateAction{Kind: updateNone}
	}
}

// payload renders a as the wire string published on sensor-alerts for
// productID, and reports whether there's anything to publish at all
// (updateNone and updateUnsubscribe never are).
func (a updateAction) payload(productID string) (string, bool) {
	switch a.Kind {
	case updateDataSuspect:
		return fmt.Sprintf("data-suspect:%s:%s", productID, a.Value), true
	case updateTracking:
		return fmt.Sprintf("tracking:%s", productID), true
	case updateNotTracking:
		return fmt.Sprintf("not-tracking:%s", productID), true
	case updatePosRequestBase, updateTarget:
		return fmt.Sprintf("%s:%s:%s", productID, a.SensorName, a.Value), true
	default:
		return "", false
	}
}
