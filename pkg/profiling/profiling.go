package profiling

import (
	"context"
	"runtime"

	"campaign-rewards/pkg/config"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("profiling", fx.Invoke(Start))

// NewConfig describes the continuous profile pushed to pyroscope. Mutex and
// block profiles are opt-in.
func NewConfig(c *config.Config) pyroscope.Config {
	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if c.Profiling.Mutex {
		types = append(types,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		)
	}

	return pyroscope.Config{
		ApplicationName: c.AppName,
		ServerAddress:   c.Profiling.PyroscopeAddr,
		ProfileTypes:    types,
		Tags: map[string]string{
			"service_name": c.AppName,
			"env":          c.AppEnv,
		},
	}
}

// Start pushes profiles when PROFILING.PYROSCOPE_ADDR is set.
func Start(lc fx.Lifecycle, c *config.Config) error {
	if c.Profiling.PyroscopeAddr == "" {
		return nil
	}

	if c.Profiling.Mutex {
		runtime.SetMutexProfileFraction(5)
		runtime.SetBlockProfileRate(5)
	}

	zap.L().Info("starting pyroscope", zap.String("app_name", c.AppName), zap.String("pyroscope_addr", c.Profiling.PyroscopeAddr))
	profiler, err := pyroscope.Start(NewConfig(c))
	if err != nil {
		zap.L().Error("failed to start pyroscope", zap.Error(err))
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return profiler.Stop()
		},
	})
	return nil
}
