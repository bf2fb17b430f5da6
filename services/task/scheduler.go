package task

import (
	"context"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/period"
	"campaign-rewards/pkg/taskname"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultDailyCron      = "5 0 * * *"
	defaultWeeklyCron     = "15 0 * * 1"
	defaultExpiryInterval = 15 * time.Minute
)

// Scheduler fires the period-close and campaign-expiry tasks on the engine
// timezone. It only enqueues; the asynq worker does the work.
type Scheduler struct {
	service   *Service
	scheduler gocron.Scheduler

	dailyCron      string
	weeklyCron     string
	expiryInterval time.Duration
}

func NewScheduler(svc *Service, cfg *config.Config) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(svc.loc))
	if err != nil {
		return nil, err
	}

	sch := &Scheduler{
		service:        svc,
		scheduler:      s,
		dailyCron:      defaultDailyCron,
		weeklyCron:     defaultWeeklyCron,
		expiryInterval: defaultExpiryInterval,
	}

	if cfg != nil {
		if c := cfg.Engine.Daily.CloseCron; c != "" {
			sch.dailyCron = c
		}
		if c := cfg.Engine.Weekly.CloseCron; c != "" {
			sch.weeklyCron = c
		}
		if cfg.Engine.CampaignExpiryInterval > 0 {
			sch.expiryInterval = cfg.Engine.CampaignExpiryInterval
		}
	}

	if err := sch.registerJobs(); err != nil {
		return nil, err
	}

	return sch, nil
}

func (s *Scheduler) registerJobs() error {
	jobs := []struct {
		name string
		def  gocron.JobDefinition
		run  func(ctx context.Context) error
	}{
		{
			name: taskname.PeriodCloseDaily,
			def:  gocron.CronJob(s.dailyCron, false),
			run:  func(ctx context.Context) error { return s.service.EnqueueClosePeriod(ctx, period.Daily) },
		},
		{
			name: taskname.PeriodCloseWeekly,
			def:  gocron.CronJob(s.weeklyCron, false),
			run:  func(ctx context.Context) error { return s.service.EnqueueClosePeriod(ctx, period.Weekly) },
		},
		{
			name: taskname.CampaignExpire,
			def:  gocron.DurationJob(s.expiryInterval),
			run:  s.service.EnqueueExpireCampaigns,
		},
	}

	for _, j := range jobs {
		_, err := s.scheduler.NewJob(
			j.def,
			gocron.NewTask(s.execute(j.name, j.run)),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			zap.L().Error("[Scheduler] failed to register job", zap.String("job", j.name), zap.Error(err))
			return err
		}
	}

	return nil
}

func (s *Scheduler) execute(name string, run func(ctx context.Context) error) func() {
	return func() {
		start := time.Now()
		zapLog := zap.L().With(zap.String("job", name))

		if err := run(context.Background()); err != nil {
			zapLog.Error("[Scheduler] job failed", zap.Error(err))
			return
		}

		zapLog.Info("[Scheduler] job finished", zap.Duration("duration", time.Since(start)))
	}
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	zap.L().Info("[Scheduler] started",
		zap.String("daily_cron", s.dailyCron),
		zap.String("weekly_cron", s.weeklyCron),
		zap.Duration("expiry_interval", s.expiryInterval),
	)
}

func (s *Scheduler) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		zap.L().Error("[Scheduler] failed to shutdown", zap.Error(err))
		return err
	}
	zap.L().Info("[Scheduler] stopped")
	return nil
}

// StartScheduler hooks the scheduler into the fx lifecycle.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop()
		},
	})
}
