package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"campaign-rewards/internal/api"
	"campaign-rewards/pkg/authz"
	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db"
	"campaign-rewards/pkg/gen"
	"campaign-rewards/pkg/hashistack/secretmanager"
	"campaign-rewards/pkg/health"
	"campaign-rewards/pkg/httpapi"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/otelcol"
	"campaign-rewards/pkg/profiling"
	"campaign-rewards/pkg/redis"
	"campaign-rewards/pkg/sequence"
	"campaign-rewards/pkg/server"
	"campaign-rewards/services/activity"
	"campaign-rewards/services/bootstrap"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"
	"campaign-rewards/services/grant"
	"campaign-rewards/services/leaderboard"
)

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
		authz.Module,
		health.Module,
		httpapi.Module,
		api.Module,
		server.ProvideHTTPServer,
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
