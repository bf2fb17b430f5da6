package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &CampaignFund{})
	return NewService(ServiceParams{DB: db, Node: testutil.NewTestNode(t)})
}

func TestApplyAndReplay(t *testing.T) {
	log := []Allocation{
		{Amount: 5_000_000, RewardAllocation: 3_500_000, DailyAllocation: 1_050_000, WeeklyAllocation: 2_450_000},
		{Amount: 999, RewardAllocation: 499, DailyAllocation: 149, WeeklyAllocation: 350},
	}

	var folded CampaignFund
	for _, a := range log {
		folded = Apply(folded, a)
	}

	require.Equal(t, int64(5_000_999), folded.CurrentAmount)
	require.Equal(t, int64(3_500_499), folded.RewardPool)
	require.Equal(t, folded.RewardPool, folded.DailyRewardPool+folded.WeeklyRewardPool)
	require.Equal(t, int64(2), folded.ContributorsCount)

	stale := CampaignFund{CurrentAmount: 1, RewardPool: 1, ContributorsCount: 9}
	require.Equal(t, folded, Replay(stale, log))
}

func TestProgress(t *testing.T) {
	require.Equal(t, "0.25", Progress(CampaignFund{TargetAmount: 400, CurrentAmount: 100}).String())
	require.Equal(t, "1", Progress(CampaignFund{TargetAmount: 100, CurrentAmount: 300}).String())
	require.Equal(t, "0", Progress(CampaignFund{TargetAmount: 100}).String())
}

func TestIsActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.True(t, (&CampaignFund{Status: StatusActive}).IsActive(now))
	require.True(t, (&CampaignFund{Status: StatusActive, EndDate: &future}).IsActive(now))
	require.False(t, (&CampaignFund{Status: StatusActive, EndDate: &past}).IsActive(now))
	require.False(t, (&CampaignFund{Status: StatusClosed}).IsActive(now))
}

func TestOpenCampaign(t *testing.T) {
	svc := newTestService(t)

	fund, err := svc.Open(context.Background(), OpenRequest{
		CandidateName: "Adaeze Okafor",
		PartyName:     "Progressive Alliance",
		Position:      "Governor",
		TargetAmount:  10_000_000,
	})
	require.NoError(t, err)
	require.Equal(t, "adaeze-okafor-governor", fund.Slug)
	require.Equal(t, StatusActive, fund.Status)
	require.Equal(t, "NGN", fund.CurrencyCode)
	require.Zero(t, fund.CurrentAmount)

	got, err := svc.Get(context.Background(), fund.CampaignID)
	require.NoError(t, err)
	require.Equal(t, fund.CampaignID, got.CampaignID)

	_, err = svc.Open(context.Background(), OpenRequest{
		CandidateName: "Adaeze Okafor",
		Position:      "Governor",
		TargetAmount:  1,
	})
	require.True(t, errors.Is(err, errutil.ErrCampaignExists))
}

func TestOpenCampaignRejectsInvalidTarget(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Open(context.Background(), OpenRequest{CandidateName: "A", TargetAmount: 0})
	require.True(t, errors.Is(err, errutil.ErrInvalidAmount))
}

func TestGetCampaignNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.True(t, errors.Is(err, errutil.ErrCampaignNotFound))
}

func TestApplyContribution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fund, err := svc.Open(ctx, OpenRequest{CandidateName: "B", TargetAmount: 100})
	require.NoError(t, err)

	updated, err := svc.ApplyContribution(ctx, svc.db, fund.CampaignID, Allocation{
		Amount: 100, RewardAllocation: 70, DailyAllocation: 21, WeeklyAllocation: 49,
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), updated.CurrentAmount)
	require.Equal(t, int64(70), updated.RewardPool)
	require.Equal(t, int64(21), updated.DailyRewardPool)
	require.Equal(t, int64(49), updated.WeeklyRewardPool)
	require.Equal(t, int64(1), updated.ContributorsCount)
}

func TestCloseAndArchive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fund, err := svc.Open(ctx, OpenRequest{CandidateName: "C", TargetAmount: 100})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)

	_, err = svc.LoadActive(ctx, svc.db, fund.CampaignID)
	require.True(t, errors.Is(err, errutil.ErrCampaignInactive))

	_, err = svc.ApplyContribution(ctx, svc.db, fund.CampaignID, Allocation{Amount: 1})
	require.True(t, errors.Is(err, errutil.ErrCampaignInactive))

	archived, err := svc.Archive(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusArchived, archived.Status)

	_, err = svc.Close(ctx, fund.CampaignID)
	require.Error(t, err)
}

func TestExpireEnded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	soon := now.Add(time.Hour)
	later := now.Add(3 * time.Hour)

	a, err := svc.Open(ctx, OpenRequest{CandidateName: "D", TargetAmount: 100, EndDate: &soon})
	require.NoError(t, err)
	b, err := svc.Open(ctx, OpenRequest{CandidateName: "E", TargetAmount: 100, EndDate: &later})
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }

	n, err := svc.ExpireEnded(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := svc.Get(ctx, a.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, got.Status)

	got, err = svc.Get(ctx, b.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
}

func TestOpenRejectsPastEndDate(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for _, end := range []time.Time{now.Add(-time.Minute), now} {
		_, err := svc.Open(context.Background(), OpenRequest{CandidateName: "Late", TargetAmount: 100, EndDate: &end})
		require.ErrorIs(t, err, errutil.ErrInvalidPeriod)
	}
}

func TestOpenEnforcesMinimumTarget(t *testing.T) {
	cfg := &config.Config{}
	cfg.Engine.MinTargetAmount = 100_000_000

	db := testutil.NewTestDB(t, &CampaignFund{})
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewTestNode(t), Config: cfg})
	ctx := context.Background()

	_, err := svc.Open(ctx, OpenRequest{CandidateName: "Small", TargetAmount: 99_999_999})
	require.ErrorIs(t, err, errutil.ErrInvalidAmount)

	fund, err := svc.Open(ctx, OpenRequest{CandidateName: "Exact", TargetAmount: 100_000_000})
	require.NoError(t, err)
	require.Equal(t, int64(100_000_000), fund.TargetAmount)
}

func TestListCampaigns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"F", "G", "H"} {
		_, err := svc.Open(ctx, OpenRequest{CandidateName: name, TargetAmount: 100})
		require.NoError(t, err)
	}

	req := ListRequest{Status: StatusActive}
	req.Limit = 2
	funds, page, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, funds, 2)
	require.True(t, page.HasMore)

	req.Cursor = page.NextCursor
	rest, page, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.False(t, page.HasMore)
}
