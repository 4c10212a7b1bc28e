package streamplan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPlan_EvenFill(t *testing.T) {
	plan, err := BuildPlan("spead://239.1.2.64+7:7148", 4, 2, 0)
	require.NoError(t, err)
	require.Equal(t, "7148", plan.Port)
	require.Equal(t, 8, plan.TotalAddrs)
	require.Equal(t, 0, plan.Dropped)

	require.Len(t, plan.Groups, 4)
	require.Equal(t, "239.1.2.64+1", plan.Groups[0].Descriptor())
	require.Equal(t, "239.1.2.66+1", plan.Groups[1].Descriptor())
	require.Equal(t, "239.1.2.68+1", plan.Groups[2].Descriptor())
	require.Equal(t, "239.1.2.70+1", plan.Groups[3].Descriptor())
}

func TestBuildPlan_PartialFinalNode(t *testing.T) {
	// 8 addresses, capacity 4 nodes * 3 streams = 12, only 3 nodes needed:
	// 3 + 3 + 2.
	plan, err := BuildPlan("spead://239.1.2.0+7:7148", 4, 3, 0)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 3)
	require.Equal(t, "239.1.2.0+2", plan.Groups[0].Descriptor())
	require.Equal(t, "239.1.2.3+2", plan.Groups[1].Descriptor())
	require.Equal(t, "239.1.2.6+1", plan.Groups[2].Descriptor())
	require.Equal(t, 3, plan.Groups[0].NAddrs())
	require.Equal(t, 2, plan.Groups[2].NAddrs())
}

func TestBuildPlan_TooManyStreamsDropsExcess(t *testing.T) {
	// 20 addresses, capacity 2 nodes * 4 streams = 8: everything is full
	// and 12 addresses are dropped.
	plan, err := BuildPlan("spead://239.1.2.0+19:7148", 2, 4, 0)
	require.NoError(t, err)
	require.Equal(t, 12, plan.Dropped)
	require.Len(t, plan.Groups, 2)
	for _, g := range plan.Groups {
		require.Equal(t, 4, g.NAddrs())
	}
}

func TestBuildPlan_OffsetSkipsLeadingAddresses(t *testing.T) {
	plan, err := BuildPlan("spead://239.1.2.0+7:7148", 4, 2, 2)
	require.NoError(t, err)
	// Offset 2 means we start at .2 and only 6 addresses remain (8-2).
	require.Equal(t, "239.1.2.2+1", plan.Groups[0].Descriptor())
	require.Len(t, plan.Groups, 3)
}

func TestBuildPlan_DegenerateURLYieldsSingleGroup(t *testing.T) {
	plan, err := BuildPlan("spead://239.1.2.64:7148", 4, 2, 0)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	require.Equal(t, "239.1.2.64+0", plan.Groups[0].Descriptor())
	require.Equal(t, 1, plan.TotalAddrs)
}

func TestBuildPlan_OctetOverflowIsRejected(t *testing.T) {
	_, err := BuildPlan("spead://239.1.2.250+15:7148", 4, 4, 0)
	require.ErrorIs(t, err, ErrOctetOverflow)
}

func TestPlan_SChan_AccountsForPartialPrecedingGroups(t *testing.T) {
	plan, err := BuildPlan("spead://239.1.2.0+7:7148", 4, 3, 0)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 3)

	const hnchan = 64
	require.Equal(t, 0, plan.SChan(0, 0, hnchan))
	require.Equal(t, 3*hnchan, plan.SChan(1, 0, hnchan))
	require.Equal(t, 6*hnchan, plan.SChan(2, 0, hnchan))
}

func TestBuildPlan_MalformedURL(t *testing.T) {
	_, err := BuildPlan("not-a-spead-url", 4, 2, 0)
	require.Error(t, err)
}
