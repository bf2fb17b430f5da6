package contribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campaign-rewards/pkg/errutil"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type testEnv struct {
	svc      *Service
	campaign *campaign.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t, &campaign.CampaignFund{}, &Contribution{})
	node := testutil.NewTestNode(t)

	campaignSvc := campaign.NewService(campaign.ServiceParams{DB: db, Node: node})
	svc, err := NewService(ServiceParams{DB: db, Node: node, Campaign: campaignSvc})
	require.NoError(t, err)

	return &testEnv{svc: svc, campaign: campaignSvc}
}

func (e *testEnv) openCampaign(t *testing.T, name string) *campaign.CampaignFund {
	t.Helper()

	fund, err := e.campaign.Open(context.Background(), campaign.OpenRequest{
		CandidateName: name,
		TargetAmount:  100_000_000,
	})
	require.NoError(t, err)
	return fund
}

func pct(v int64) *int64 { return &v }

func TestContribute(t *testing.T) {
	env := newTestEnv(t)
	fund := env.openCampaign(t, "Chidi Eze")

	res, err := env.svc.Contribute(context.Background(), ContributeRequest{
		CampaignID:       fund.CampaignID,
		ContributorID:    "user-1",
		Amount:           5_000_000,
		RewardPercentage: pct(70),
	})
	require.NoError(t, err)

	c := res.Contribution
	require.NotEmpty(t, c.ID)
	require.NotEmpty(t, c.Reference)
	require.Equal(t, "NGN", c.CurrencyCode)
	require.Equal(t, int64(3_500_000), c.RewardAllocation)
	require.Equal(t, int64(1_500_000), c.CampaignAllocation)

	require.Equal(t, int64(5_000_000), res.Fund.CurrentAmount)
	require.Equal(t, int64(3_500_000), res.Fund.RewardPool)
	require.Equal(t, int64(1_050_000), res.Fund.DailyRewardPool)
	require.Equal(t, int64(2_450_000), res.Fund.WeeklyRewardPool)
	require.Equal(t, int64(1), res.Fund.ContributorsCount)
}

func TestContributeUsesDefaultPercentage(t *testing.T) {
	env := newTestEnv(t)
	fund := env.openCampaign(t, "Default Pct")

	res, err := env.svc.Contribute(context.Background(), ContributeRequest{
		CampaignID: fund.CampaignID,
		Amount:     1000,
	})
	require.NoError(t, err)
	require.Equal(t, int64(70), res.Contribution.RewardPercentage)
	require.Equal(t, int64(700), res.Contribution.RewardAllocation)
}

func TestContributeValidatesBeforeMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "No Mutation")

	_, err := env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 0})
	require.True(t, errors.Is(err, errutil.ErrInvalidAmount))

	_, err = env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 100, RewardPercentage: pct(95)})
	require.True(t, errors.Is(err, errutil.ErrInvalidPercentage))

	_, err = env.svc.Contribute(ctx, ContributeRequest{CampaignID: "missing", Amount: 100})
	require.True(t, errors.Is(err, errutil.ErrCampaignNotFound))

	got, err := env.campaign.Get(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.Zero(t, got.CurrentAmount)
	require.Zero(t, got.ContributorsCount)

	items, _, err := env.svc.List(ctx, ListRequest{CampaignID: fund.CampaignID})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestContributeToClosedCampaign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "Closed")

	_, err := env.campaign.Close(ctx, fund.CampaignID)
	require.NoError(t, err)

	_, err = env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 100})
	require.True(t, errors.Is(err, errutil.ErrCampaignInactive))

	items, _, err := env.svc.List(ctx, ListRequest{CampaignID: fund.CampaignID})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestConcurrentContributionsKeepTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "Concurrent")

	amounts := []int64{999, 1, 5_000_000, 3, 77_777, 12_345, 1000, 50}

	var g errgroup.Group
	for _, amount := range amounts {
		g.Go(func() error {
			_, err := env.svc.Contribute(ctx, ContributeRequest{
				CampaignID:       fund.CampaignID,
				Amount:           amount,
				RewardPercentage: pct(63),
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	var total int64
	for _, a := range amounts {
		total += a
	}

	got, err := env.campaign.Get(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.Equal(t, total, got.CurrentAmount)
	require.Equal(t, int64(len(amounts)), got.ContributorsCount)
	require.Equal(t, got.RewardPool, got.DailyRewardPool+got.WeeklyRewardPool)

	rec, err := env.svc.Reconcile(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.True(t, rec.Consistent)
	require.Equal(t, len(amounts), rec.Entries)
}

func TestReconcileDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "Drift")

	_, err := env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 1000})
	require.NoError(t, err)

	require.NoError(t, env.svc.db.Model(&campaign.CampaignFund{}).
		Where("campaign_id = ?", fund.CampaignID).
		Update("reward_pool", 1).Error)

	rec, err := env.svc.Reconcile(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.False(t, rec.Consistent)
	require.Equal(t, int64(700), rec.Replayed.RewardPool)
	require.Equal(t, int64(1), rec.Stored.RewardPool)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "Preview")

	c, err := env.svc.Preview(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 10_000, RewardPercentage: pct(50)})
	require.NoError(t, err)
	require.Equal(t, int64(5000), c.RewardAllocation)
	require.Equal(t, int64(1500), c.DailyAllocation)

	got, err := env.campaign.Get(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.Zero(t, got.CurrentAmount)
}

func TestSumAllocations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "Sums")

	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }

	_, err := env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 10_000, RewardPercentage: pct(50)})
	require.NoError(t, err)

	env.svc.now = func() time.Time { return now.Add(48 * time.Hour) }
	_, err = env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, Amount: 10_000, RewardPercentage: pct(50)})
	require.NoError(t, err)

	totals, err := env.svc.SumAllocations(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1500), totals.Daily)
	require.Equal(t, int64(3500), totals.Weekly)

	totals, err = env.svc.SumAllocations(ctx, now.Add(-time.Hour), now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(3000), totals.Daily)
	require.Equal(t, int64(7000), totals.Weekly)
}

func TestListContributions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fund := env.openCampaign(t, "List")

	for i := 0; i < 3; i++ {
		_, err := env.svc.Contribute(ctx, ContributeRequest{CampaignID: fund.CampaignID, ContributorID: "u1", Amount: 100})
		require.NoError(t, err)
	}

	req := ListRequest{CampaignID: fund.CampaignID}
	req.Limit = 2
	items, page, err := env.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, page.HasMore)

	req.Cursor = page.NextCursor
	items, page, err = env.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, page.HasMore)
}
