package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantRA   string
		wantDec  string
	}{
		{
			name:     "aliased catalog target",
			raw:      "J0918-1205 | Hyd A, radec, 9:18:05.28, -12:05:48.9",
			wantName: "J0918-1205",
			wantRA:   "9:18:05.28",
			wantDec:  "-12:05:48.9",
		},
		{
			name:     "radec target delimiter takes priority",
			raw:      "3C273, radec target, 12:29:06.7, +02:03:08.6",
			wantName: "3C273",
			wantRA:   "12:29:06.7",
			wantDec:  "+02:03:08.6",
		},
		{
			name:     "no alias separator",
			raw:      "Vela, radec, 8:35:20.61, -45:10:34.8",
			wantName: "Vela",
			wantRA:   "8:35:20.61",
			wantDec:  "-45:10:34.8",
		},
		{
			name:     "punctuation replaced with underscores",
			raw:      "PKS 1934-63/8, radec, 19:39:25.02, -63:42:45.6",
			wantName: "PKS 1934-63_8",
			wantRA:   "19:39:25.02",
			wantDec:  "-63:42:45.6",
		},
		{
			name:     "name truncated to sixteen characters",
			raw:      "a_very_long_source_name_indeed, radec, 0:00:00, 0:00:00",
			wantName: "a_very_long_sour",
			wantRA:   "0:00:00",
			wantDec:  "0:00:00",
		},
		{
			name:     "empty name becomes NOT_PROVIDED",
			raw:      ", radec, 1:02:03, -4:05:06",
			wantName: NotProvided,
			wantRA:   "1:02:03",
			wantDec:  "-4:05:06",
		},
		{
			name:     "no radec tag yields name only",
			raw:      "azel, 120.0, 45.0",
			wantName: "azel_ 120_0_ 45_",
			wantRA:   "",
			wantDec:  "",
		},
		{
			name:     "trailing fields beyond dec are ignored",
			raw:      "SrcX, radec, 1:00:00, 2:00:00, extra",
			wantName: "SrcX",
			wantRA:   "1:00:00",
			wantDec:  "2:00:00",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, ra, dec := Format(tc.raw)
			require.Equal(t, tc.wantName, name)
			require.Equal(t, tc.wantRA, ra)
			require.Equal(t, tc.wantDec, dec)
		})
	}
}

func TestFormat_NameIsIdempotent(t *testing.T) {
	inputs := []string{
		"J0918-1205 | Hyd A, radec, 9:18:05.28, -12:05:48.9",
		"PKS 1934-63/8, radec, 19:39:25.02, -63:42:45.6",
	}
	for _, raw := range inputs {
		name, _, _ := Format(raw)
		again, _, _ := Format(name)
		require.Equal(t, name, again)
	}
}
