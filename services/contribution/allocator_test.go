package contribution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/money"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()

	a, err := NewAllocator(DefaultAllocatorConfig())
	require.NoError(t, err)
	return a
}

func TestAllocateSplitsAmount(t *testing.T) {
	a := newTestAllocator(t)

	c, err := a.Allocate("camp-1", 5_000_000, 70)
	require.NoError(t, err)
	require.Equal(t, int64(3_500_000), c.RewardAllocation)
	require.Equal(t, int64(1_500_000), c.CampaignAllocation)
	require.Equal(t, int64(1_050_000), c.DailyAllocation)
	require.Equal(t, int64(2_450_000), c.WeeklyAllocation)
}

func TestAllocateConservesEveryUnit(t *testing.T) {
	a := newTestAllocator(t)

	cases := []struct {
		amount int64
		pct    int64
	}{
		{1, 50},
		{3, 70},
		{999, 50},
		{1_000_001, 90},
		{7_777_777, 63},
		{money.MaxAmount, 90},
	}

	for _, tc := range cases {
		c, err := a.Allocate("camp", tc.amount, tc.pct)
		require.NoError(t, err)
		require.Equal(t, tc.amount, c.CampaignAllocation+c.RewardAllocation, "amount %d", tc.amount)
		require.Equal(t, c.RewardAllocation, c.DailyAllocation+c.WeeklyAllocation, "amount %d", tc.amount)
		require.GreaterOrEqual(t, c.CampaignAllocation, int64(0))
		require.GreaterOrEqual(t, c.DailyAllocation, int64(0))
	}
}

func TestAllocateFloorsRewardShare(t *testing.T) {
	a := newTestAllocator(t)

	c, err := a.Allocate("camp", 999, 50)
	require.NoError(t, err)
	require.Equal(t, int64(499), c.RewardAllocation)
	require.Equal(t, int64(500), c.CampaignAllocation)
	require.Equal(t, int64(149), c.DailyAllocation)
	require.Equal(t, int64(350), c.WeeklyAllocation)
}

func TestAllocateRejectsBadInput(t *testing.T) {
	a := newTestAllocator(t)

	_, err := a.Allocate("camp", 0, 70)
	require.True(t, errors.Is(err, errutil.ErrInvalidAmount))

	_, err = a.Allocate("camp", -5, 70)
	require.True(t, errors.Is(err, errutil.ErrInvalidAmount))

	_, err = a.Allocate("camp", money.MaxAmount+1, 70)
	require.True(t, errors.Is(err, errutil.ErrInvalidAmount))

	_, err = a.Allocate("camp", 100, 49)
	require.True(t, errors.Is(err, errutil.ErrInvalidPercentage))

	_, err = a.Allocate("camp", 100, 91)
	require.True(t, errors.Is(err, errutil.ErrInvalidPercentage))

	_, err = a.Allocate("camp", 100, 50)
	require.NoError(t, err)
	_, err = a.Allocate("camp", 100, 90)
	require.NoError(t, err)
}

func TestNewAllocatorRejectsBadBounds(t *testing.T) {
	_, err := NewAllocator(AllocatorConfig{MinPercentage: 80, MaxPercentage: 60})
	require.Error(t, err)

	_, err = NewAllocator(AllocatorConfig{MinPercentage: 10, MaxPercentage: 20, DailySharePercentage: 101})
	require.Error(t, err)

	a, err := NewAllocator(AllocatorConfig{MinPercentage: 10, MaxPercentage: 20, DefaultPercentage: 99, DailySharePercentage: 30})
	require.NoError(t, err)
	require.Equal(t, int64(10), a.Config().DefaultPercentage)
}
