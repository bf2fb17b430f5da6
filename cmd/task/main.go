package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db"
	"campaign-rewards/pkg/gen"
	"campaign-rewards/pkg/hashistack/secretmanager"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/otelcol"
	"campaign-rewards/pkg/profiling"
	"campaign-rewards/pkg/redis"
	"campaign-rewards/pkg/sequence"
	pkgtask "campaign-rewards/pkg/task"
	"campaign-rewards/services/activity"
	"campaign-rewards/services/bootstrap"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"
	"campaign-rewards/services/grant"
	"campaign-rewards/services/leaderboard"
	"campaign-rewards/services/task"
)

// The task process runs the asynq worker and the cron scheduler that feeds
// it. Several replicas may run; period closes are deduplicated by task id.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	app := fx.New(
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		sequence.Module,
		campaign.Module,
		contribution.Module,
		activity.Module,
		leaderboard.Module,
		grant.Module,
		bootstrap.Module,
		pkgtask.Client,
		pkgtask.Server,
		task.Module,
		task.Worker,
		task.Cron,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})
