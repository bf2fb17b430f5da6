package task

import (
	"campaign-rewards/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(NewService),
)

// Worker registers the asynq handlers on the server mux.
var Worker = fx.Module("task.worker",
	fx.Invoke(RegisterHandlers),
)

// Cron runs the scheduler that enqueues the periodic tasks.
var Cron = fx.Module("task.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)

func RegisterHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.PeriodCloseDaily, svc.HandleClosePeriodTask)
	mux.HandleFunc(taskname.PeriodCloseWeekly, svc.HandleClosePeriodTask)
	mux.HandleFunc(taskname.CampaignExpire, svc.HandleExpireTask)
}
