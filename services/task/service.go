package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/period"
	pkgtask "campaign-rewards/pkg/task"
	"campaign-rewards/pkg/taskname"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/grant"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	enqueuer pkgtask.Enqueuer
	grant    *grant.Service
	campaign *campaign.Service
	loc      *time.Location
	now      func() time.Time
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Node     *snowflake.Node
	Grant    *grant.Service
	Campaign *campaign.Service
	Config   *config.Config   `optional:"true"`
	Enqueuer pkgtask.Enqueuer `optional:"true"`
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		enqueuer: p.Enqueuer,
		grant:    p.Grant,
		campaign: p.Campaign,
		loc:      period.LocationFromConfig(p.Config),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func closeTaskName(t period.Type) string {
	if t == period.Weekly {
		return taskname.PeriodCloseWeekly
	}
	return taskname.PeriodCloseDaily
}

// EnqueueClosePeriod queues the close of the period that just ended. The
// asynq task id is derived from the period so a second enqueue is a no-op.
func (s *Service) EnqueueClosePeriod(ctx context.Context, t period.Type) error {
	w := period.Of(t, s.now(), s.loc).Previous(s.loc)
	payload := ClosePeriodPayload{PeriodType: string(t), PeriodStart: w.Start}

	if s.enqueuer == nil {
		return s.RunClosePeriod(ctx, payload)
	}

	name := closeTaskName(t)
	job := &Job{
		ID:       s.node.Generate().String(),
		TaskName: name,
		Status:   JobPending,
	}
	payload.JobID = job.ID

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = datatypes.JSON(b)

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return errutil.StoreUnavailable(err)
	}

	zapLog := logger.FromContext(ctx).With(zap.String("task", name), zap.String("job_id", job.ID), zap.Time("period_start", w.Start))

	_, err = s.enqueuer.Enqueue(ctx, asynq.NewTask(name, b),
		asynq.TaskID(fmt.Sprintf("%s:%d", name, w.Start.Unix())),
		asynq.Queue(pkgtask.QueueCritical),
		asynq.MaxRetry(10),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.finish(ctx, job.ID, JobDuplicate, nil)
		zapLog.Info("period close already queued")
		return nil
	}
	if err != nil {
		s.finish(ctx, job.ID, JobFailed, err)
		zapLog.Error("failed to enqueue period close", zap.Error(err))
		return err
	}

	zapLog.Info("enqueued period close")
	return nil
}

// EnqueueExpireCampaigns queues the sweep that closes campaigns past their end date.
func (s *Service) EnqueueExpireCampaigns(ctx context.Context) error {
	if s.enqueuer == nil {
		_, err := s.RunExpireCampaigns(ctx)
		return err
	}

	_, err := s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.CampaignExpire, nil),
		asynq.Queue(pkgtask.QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(time.Minute),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// HandleClosePeriodTask is the asynq handler for both close task types.
func (s *Service) HandleClosePeriodTask(ctx context.Context, t *asynq.Task) error {
	var payload ClosePeriodPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid close period payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	err := s.RunClosePeriod(ctx, payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errutil.ErrPeriodOpen), errors.Is(err, errutil.ErrInvalidPeriod):
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	default:
		return err
	}
}

// RunClosePeriod closes one period and keeps a job record of the run.
func (s *Service) RunClosePeriod(ctx context.Context, payload ClosePeriodPayload) error {
	jobID, err := s.start(ctx, payload)
	if err != nil {
		return err
	}
	job := &Job{ID: jobID}

	zapLog := logger.FromContext(ctx).With(
		zap.String("job_id", job.ID),
		zap.String("period_type", payload.PeriodType),
		zap.Time("period_start", payload.PeriodStart),
	)
	zapLog.Info("processing period close")

	grants, err := s.grant.ClosePeriod(ctx, payload.PeriodType, payload.PeriodStart)
	if errors.Is(err, errutil.ErrPeriodClosing) {
		s.finish(ctx, job.ID, JobDuplicate, nil)
		zapLog.Info("period close running elsewhere")
		return nil
	}
	if err != nil {
		s.finish(ctx, job.ID, JobFailed, err)
		zapLog.Error("period close failed", zap.Error(err))
		return err
	}

	s.finish(ctx, job.ID, JobSuccess, nil)
	zapLog.Info("finished period close", zap.Int("grants", len(grants)))
	return nil
}

func (s *Service) HandleExpireTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.RunExpireCampaigns(ctx)
	return err
}

func (s *Service) RunExpireCampaigns(ctx context.Context) (int64, error) {
	return s.campaign.ExpireEnded(ctx)
}

// start marks the queued job as running, or records a new job when the run
// did not come through the queue.
func (s *Service) start(ctx context.Context, payload ClosePeriodPayload) (string, error) {
	now := s.now()

	if payload.JobID != "" {
		res := s.db.WithContext(ctx).Model(&Job{}).
			Where("id = ?", payload.JobID).
			Updates(map[string]any{"status": JobRunning, "started_at": now})
		if res.Error != nil {
			return "", errutil.StoreUnavailable(res.Error)
		}
		if res.RowsAffected > 0 {
			return payload.JobID, nil
		}
	}

	b, _ := json.Marshal(payload)
	job := &Job{
		ID:        s.node.Generate().String(),
		TaskName:  closeTaskName(period.Type(payload.PeriodType)),
		Status:    JobRunning,
		Payload:   datatypes.JSON(b),
		StartedAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return "", errutil.StoreUnavailable(err)
	}
	return job.ID, nil
}

func (s *Service) finish(ctx context.Context, jobID string, status JobStatus, cause error) {
	now := s.now()
	updates := map[string]any{"status": status, "completed_at": now}
	if cause != nil {
		updates["error_msg"] = cause.Error()
	}
	if err := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to update job status", zap.String("job_id", jobID), zap.Error(err))
	}
}
