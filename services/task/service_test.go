package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campaign-rewards/pkg/taskname"
	"campaign-rewards/services/activity"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"
	"campaign-rewards/services/grant"
	"campaign-rewards/services/leaderboard"
	"campaign-rewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

// enqueuerMock records tasks and rejects a repeated task id like asynq does.
type enqueuerMock struct {
	mu    sync.Mutex
	ids   map[string]bool
	tasks []*asynq.Task
	err   error
}

func (m *enqueuerMock) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.ids == nil {
		m.ids = map[string]bool{}
	}

	for _, o := range opts {
		if o.Type() != asynq.TaskIDOpt {
			continue
		}
		id := o.Value().(string)
		if m.ids[id] {
			return nil, asynq.ErrTaskIDConflict
		}
		m.ids[id] = true
	}

	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	campaign *campaign.Service
	fund     *campaign.CampaignFund
}

func newTestEnv(t *testing.T, enq *enqueuerMock) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&campaign.CampaignFund{},
		&contribution.Contribution{},
		&activity.SupporterActivity{},
		&grant.Grant{},
		&grant.PeriodClose{},
		&Job{},
	)
	node := testutil.NewTestNode(t)

	campaignSvc := campaign.NewService(campaign.ServiceParams{DB: db, Node: node})
	contributionSvc, err := contribution.NewService(contribution.ServiceParams{DB: db, Node: node, Campaign: campaignSvc})
	require.NoError(t, err)
	activitySvc, err := activity.NewService(activity.ServiceParams{DB: db, Node: node, Campaign: campaignSvc})
	require.NoError(t, err)
	leaderboardSvc, err := leaderboard.NewService(leaderboard.ServiceParams{Activity: activitySvc})
	require.NoError(t, err)
	grantSvc := grant.NewService(grant.ServiceParams{DB: db, Node: node, Leaderboard: leaderboardSvc, Contribution: contributionSvc})

	p := Params{DB: db, Node: node, Grant: grantSvc, Campaign: campaignSvc}
	if enq != nil {
		p.Enqueuer = enq
	}
	svc := NewService(p)
	svc.now = func() time.Time { return monday.Add(24*time.Hour + 5*time.Minute) }

	fund, err := campaignSvc.Open(context.Background(), campaign.OpenRequest{CandidateName: "Task", TargetAmount: 1000})
	require.NoError(t, err)

	require.NoError(t, db.Create(&activity.SupporterActivity{
		ID:             "post-1",
		UserID:         "winner",
		CampaignID:     fund.CampaignID,
		ActivityType:   activity.TypePostVideo,
		PointsEarned:   50,
		RewardEligible: true,
		CreatedAt:      monday.Add(time.Hour),
	}).Error)

	return &testEnv{svc: svc, db: db, campaign: campaignSvc, fund: fund}
}

func (e *testEnv) jobs(t *testing.T) []Job {
	t.Helper()

	var jobs []Job
	require.NoError(t, e.db.Order("created_at asc").Find(&jobs).Error)
	return jobs
}

func TestEnqueueClosePeriodDedupes(t *testing.T) {
	enq := &enqueuerMock{}
	env := newTestEnv(t, enq)
	ctx := context.Background()

	require.NoError(t, env.svc.EnqueueClosePeriod(ctx, "daily"))
	require.NoError(t, env.svc.EnqueueClosePeriod(ctx, "daily"))

	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.PeriodCloseDaily, enq.tasks[0].Type())

	var payload ClosePeriodPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, "daily", payload.PeriodType)
	require.True(t, payload.PeriodStart.Equal(monday))
	require.NotEmpty(t, payload.JobID)

	statuses := map[JobStatus]int{}
	for _, j := range env.jobs(t) {
		statuses[j.Status]++
	}
	require.Equal(t, 1, statuses[JobPending])
	require.Equal(t, 1, statuses[JobDuplicate])
}

func TestEnqueueFailureMarksJob(t *testing.T) {
	enq := &enqueuerMock{err: errors.New("redis down")}
	env := newTestEnv(t, enq)

	err := env.svc.EnqueueClosePeriod(context.Background(), "weekly")
	require.Error(t, err)

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	require.Equal(t, JobFailed, jobs[0].Status)
	require.Contains(t, jobs[0].ErrorMsg, "redis down")
}

func TestHandleClosePeriodTask(t *testing.T) {
	enq := &enqueuerMock{}
	env := newTestEnv(t, enq)
	ctx := context.Background()

	require.NoError(t, env.svc.EnqueueClosePeriod(ctx, "daily"))
	require.NoError(t, env.svc.HandleClosePeriodTask(ctx, enq.tasks[0]))

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	require.Equal(t, JobSuccess, jobs[0].Status)
	require.NotNil(t, jobs[0].StartedAt)
	require.NotNil(t, jobs[0].CompletedAt)

	var grants []grant.Grant
	require.NoError(t, env.db.Find(&grants).Error)
	require.Len(t, grants, 1)
	require.Equal(t, "winner", grants[0].UserID)

	// a retried delivery of the same task issues nothing new
	require.NoError(t, env.svc.HandleClosePeriodTask(ctx, enq.tasks[0]))
	require.NoError(t, env.db.Find(&grants).Error)
	require.Len(t, grants, 1)
}

func TestHandleClosePeriodTaskSkipsRetryForOpenPeriod(t *testing.T) {
	env := newTestEnv(t, nil)

	b, err := json.Marshal(ClosePeriodPayload{PeriodType: "daily", PeriodStart: time.Now().UTC()})
	require.NoError(t, err)

	err = env.svc.HandleClosePeriodTask(context.Background(), asynq.NewTask(taskname.PeriodCloseDaily, b))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = env.svc.HandleClosePeriodTask(context.Background(), asynq.NewTask(taskname.PeriodCloseDaily, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestClosePeriodRunsInlineWithoutQueue(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.svc.EnqueueClosePeriod(context.Background(), "daily"))

	var n int64
	require.NoError(t, env.db.Model(&grant.Grant{}).Count(&n).Error)
	require.Equal(t, int64(1), n)

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	require.Equal(t, JobSuccess, jobs[0].Status)
}

func TestHandleExpireTask(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	end := time.Now().UTC().Add(time.Hour)
	fund, err := env.campaign.Open(ctx, campaign.OpenRequest{CandidateName: "Ended", TargetAmount: 10, EndDate: &end})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&campaign.CampaignFund{}).
		Where("campaign_id = ?", fund.CampaignID).
		Update("end_date", time.Now().UTC().Add(-time.Hour)).Error)

	require.NoError(t, env.svc.HandleExpireTask(ctx, asynq.NewTask(taskname.CampaignExpire, nil)))

	got, err := env.campaign.Get(ctx, fund.CampaignID)
	require.NoError(t, err)
	require.Equal(t, campaign.StatusClosed, got.Status)

	still, err := env.campaign.Get(ctx, env.fund.CampaignID)
	require.NoError(t, err)
	require.Equal(t, campaign.StatusActive, still.Status)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	env := newTestEnv(t, &enqueuerMock{})

	sch, err := NewScheduler(env.svc, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		taskname.PeriodCloseDaily,
		taskname.PeriodCloseWeekly,
		taskname.CampaignExpire,
	}, sch.Jobs())

	sch.Start()
	require.NoError(t, sch.Stop())
}
