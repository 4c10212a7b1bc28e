package coordinator

import (
	"testing"

	"github.com/meerkat-commensal/corral/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.Event
	}{
		{
			name: "conf_complete",
			raw:  "conf_complete:array_1",
			want: types.Event{Kind: types.KindConfComplete, ProductID: "array_1"},
		},
		{
			name: "deconfigure",
			raw:  "deconfigure:array_2",
			want: types.Event{Kind: types.KindDeconfigure, ProductID: "array_2"},
		},
		{
			name: "tracking",
			raw:  "tracking:array_1",
			want: types.Event{Kind: types.KindTracking, ProductID: "array_1"},
		},
		{
			name: "not-tracking",
			raw:  "not-tracking:array_1",
			want: types.Event{Kind: types.KindNotTracking, ProductID: "array_1"},
		},
		{
			name: "data-suspect carries mask",
			raw:  "data-suspect:array_1:1011",
			want: types.Event{Kind: types.KindDataSuspect, ProductID: "array_1", Mask: "1011"},
		},
		{
			name: "trigger mode change",
			raw:  "coordinator:trigger_mode:armed",
			want: types.Event{Kind: types.KindTriggerMode, Value: "armed"},
		},
		{
			name: "pointing carries product_id in the type field",
			raw:  "array_1:m001_pos_request_base_ra:3.14",
			want: types.Event{Kind: types.KindPointing, ProductID: "array_1", Axis: types.PointingRA, Value: "3.14"},
		},
		{
			name: "pointing dec axis",
			raw:  "array_1:m001_pos_request_base_dec:-0.5",
			want: types.Event{Kind: types.KindPointing, ProductID: "array_1", Axis: types.PointingDec, Value: "-0.5"},
		},
		{
			name: "unrecognized type falls through to unknown",
			raw:  "array_1:m001_target:J0918-1205",
			want: types.Event{Kind: types.KindUnknown, ProductID: "m001_target", Value: "J0918-1205"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEvent(tc.raw)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseEvent_MalformedSingleField(t *testing.T) {
	_, err := ParseEvent("conf_complete")
	require.ErrorIs(t, err, ErrMalformedEvent)
}
