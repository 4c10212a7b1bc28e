package startindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelect_NoActiveHosts(t *testing.T) {
	_, err := Select(map[string]int64{}, DefaultMargin)
	require.ErrorIs(t, err, ErrNoActiveHosts)
}

func TestSelect_TightCluster(t *testing.T) {
	idx := map[string]int64{
		"n0": 1_000_000,
		"n1": 1_000_010,
		"n2": 1_000_005,
	}
	res, err := Select(idx, DefaultMargin)
	require.NoError(t, err)
	require.Empty(t, res.Outliers)
	require.False(t, res.LargeSpread)
	require.Equal(t, int64(1_000_010)+DefaultMargin, res.PktStart)
}

func TestSelect_FlagsOutlier(t *testing.T) {
	idx := map[string]int64{
		"n0": 1_000_000,
		"n1": 1_000_010,
		"n2": 5_000_000, // way off, should be flagged
	}
	res, err := Select(idx, DefaultMargin)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"n2"}, res.Outliers)
	require.False(t, res.LargeSpread)
	require.Equal(t, int64(1_000_010)+DefaultMargin, res.PktStart)
}

func TestSelect_LargeSpreadWhenMajorityAreOutliers(t *testing.T) {
	idx := map[string]int64{
		"n0": 1_000_000,
		"n1": 9_000_000,
		"n2": 9_100_000,
	}
	res, err := Select(idx, DefaultMargin)
	require.NoError(t, err)
	require.True(t, res.LargeSpread)
}

func TestSelect_SingleHost(t *testing.T) {
	res, err := Select(map[string]int64{"n0": 42}, DefaultMargin)
	require.NoError(t, err)
	require.Empty(t, res.Outliers)
	require.Equal(t, int64(42)+DefaultMargin, res.PktStart)
}
