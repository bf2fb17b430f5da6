package httpapi

import (
	"net/http"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/health"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewEngine, NewHandler),
	fx.Invoke(registerHealthEndpoint),
)

// NewEngine builds the gin engine shared by every route group. Errors attached
// with c.Error are rendered by the error middleware.
func NewEngine(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		accessLog(),
		middleware.Error(),
	)
	return engine
}

// NewHandler wraps the engine with otel instrumentation for the HTTP server.
func NewHandler(cfg *config.Config, engine *gin.Engine) http.Handler {
	return otelhttp.NewHandler(engine, cfg.AppName)
}

func registerHealthEndpoint(engine *gin.Engine, h health.HealthService) {
	engine.GET("/healthz", h.Liveness)
	engine.GET("/readyz", h.Readiness)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return
		}
		logger.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
