package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db"
	"campaign-rewards/pkg/gen"
	"campaign-rewards/pkg/hashistack/secretmanager"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/services/bootstrap"
	"campaign-rewards/services/campaign"
)

// migrate creates the schema and the configured default campaign, then exits.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		fx.Decorate(func(cfg *config.Config) *config.Config {
			cfg.Database.AutoMigrate = true
			return cfg
		}),
		logger.Module,
		db.Module,
		gen.Module,
		campaign.Module,
		bootstrap.Module,
		fx.WithLogger(func(*zap.Logger) fxevent.Logger { return fxevent.NopLogger }),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := app.Stop(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("migration finished")
}
