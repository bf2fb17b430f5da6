package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/period"
	"campaign-rewards/pkg/rediskey"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type testEnv struct {
	svc      *Service
	campaign *campaign.Service
	fund     *campaign.CampaignFund
}

func newTestEnv(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t, &campaign.CampaignFund{}, &SupporterActivity{})
	node := testutil.NewTestNode(t)

	campaignSvc := campaign.NewService(campaign.ServiceParams{DB: db, Node: node})
	svc, err := NewService(ServiceParams{DB: db, Node: node, Campaign: campaignSvc, Redis: rdb})
	require.NoError(t, err)

	fund, err := campaignSvc.Open(context.Background(), campaign.OpenRequest{CandidateName: "Activity", TargetAmount: 1000})
	require.NoError(t, err)

	return &testEnv{svc: svc, campaign: campaignSvc, fund: fund}
}

func TestRecordPost(t *testing.T) {
	env := newTestEnv(t, nil)

	a, err := env.svc.RecordActivity(context.Background(), RecordRequest{
		UserID:       "u1",
		CampaignID:   env.fund.CampaignID,
		ActivityType: "post_video",
	})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Equal(t, int64(50), a.PointsEarned)
	require.True(t, a.RewardEligible)
	require.Empty(t, a.PostID)
}

func TestRecordEngagementCreditsAuthor(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	post, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "author", CampaignID: env.fund.CampaignID, ActivityType: "post_text"})
	require.NoError(t, err)

	share, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "fan", CampaignID: env.fund.CampaignID, ActivityType: "share", PostID: post.ID})
	require.NoError(t, err)
	require.Equal(t, post.ID, share.PostID)
	require.Equal(t, "author", share.PostAuthorID)
	require.Equal(t, int64(5), share.PointsEarned)

	view, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "lurker", CampaignID: env.fund.CampaignID, ActivityType: "view", PostID: post.ID})
	require.NoError(t, err)
	require.False(t, view.RewardEligible)
	require.Zero(t, view.PointsEarned)
}

func TestRecordActivityValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.RecordActivity(ctx, RecordRequest{CampaignID: env.fund.CampaignID, ActivityType: "post_text"})
	require.True(t, errors.Is(err, errutil.ErrInvalidActivity))

	_, err = env.svc.RecordActivity(ctx, RecordRequest{UserID: "u1", CampaignID: env.fund.CampaignID, ActivityType: "dance"})
	require.True(t, errors.Is(err, errutil.ErrInvalidActivity))

	_, err = env.svc.RecordActivity(ctx, RecordRequest{UserID: "u1", CampaignID: env.fund.CampaignID, ActivityType: "like"})
	require.True(t, errors.Is(err, errutil.ErrInvalidActivity))

	_, err = env.svc.RecordActivity(ctx, RecordRequest{UserID: "u1", CampaignID: env.fund.CampaignID, ActivityType: "like", PostID: "nope"})
	require.True(t, errors.Is(err, errutil.ErrPostNotFound))

	_, err = env.svc.RecordActivity(ctx, RecordRequest{UserID: "u1", CampaignID: "missing", ActivityType: "post_text"})
	require.True(t, errors.Is(err, errutil.ErrCampaignNotFound))
}

func TestEngagementMustTargetPost(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	post, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "a", CampaignID: env.fund.CampaignID, ActivityType: "post_image"})
	require.NoError(t, err)
	like, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "b", CampaignID: env.fund.CampaignID, ActivityType: "like", PostID: post.ID})
	require.NoError(t, err)

	_, err = env.svc.RecordActivity(ctx, RecordRequest{UserID: "c", CampaignID: env.fund.CampaignID, ActivityType: "like", PostID: like.ID})
	require.True(t, errors.Is(err, errutil.ErrPostNotFound))
}

func TestRecordOnClosedCampaign(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.campaign.Close(ctx, env.fund.CampaignID)
	require.NoError(t, err)

	_, err = env.svc.RecordActivity(ctx, RecordRequest{UserID: "u1", CampaignID: env.fund.CampaignID, ActivityType: "post_text"})
	require.True(t, errors.Is(err, errutil.ErrCampaignInactive))
}

func TestListInWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{day.Add(time.Hour), day.Add(23 * time.Hour), day.Add(25 * time.Hour)} {
		env.svc.now = func() time.Time { return at }
		_, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "u", CampaignID: env.fund.CampaignID, ActivityType: "post_text"})
		require.NoError(t, err, i)
	}

	items, err := env.svc.ListInWindow(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, items[0].CreatedAt.Before(items[1].CreatedAt))
}

func TestRecordInvalidatesLeaderboardCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, rdb)
	ctx := context.Background()

	now := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }

	dailyKey := rediskey.BuildLeaderboardKey(string(period.Daily), period.Of(period.Daily, now, time.UTC).Start)
	weeklyKey := rediskey.BuildLeaderboardKey(string(period.Weekly), period.Of(period.Weekly, now, time.UTC).Start)
	require.NoError(t, mr.Set(dailyKey, "[]"))
	require.NoError(t, mr.Set(weeklyKey, "[]"))

	_, err := env.svc.RecordActivity(ctx, RecordRequest{UserID: "u1", CampaignID: env.fund.CampaignID, ActivityType: "post_text"})
	require.NoError(t, err)

	require.False(t, mr.Exists(dailyKey))
	require.False(t, mr.Exists(weeklyKey))

	dailyVer := rediskey.BuildLeaderboardVersionKey(string(period.Daily), period.Of(period.Daily, now, time.UTC).Start)
	v, err := mr.Get(dailyVer)
	require.NoError(t, err)
	require.Equal(t, "1", v)
	require.Positive(t, mr.TTL(dailyVer))
}
