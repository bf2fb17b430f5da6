package otelcol

import (
	"context"
	"fmt"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol", fx.Invoke(Register))

func defaultTraceProviderOption() []trace.TracerProviderOption {
	return []trace.TracerProviderOption{
		trace.WithResource(resource.Default()),
	}
}

func ProvideTrace(exporter trace.SpanExporter, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	if len(opts) == 0 {
		opts = defaultTraceProviderOption()
	}

	opts = append(opts, trace.WithBatcher(exporter))

	return trace.NewTracerProvider(opts...)
}

// NewExporter picks the span exporter named by OTEL.EXPORTER. An empty value
// disables export and returns nil.
func NewExporter(cfg *config.Config) (trace.SpanExporter, error) {
	switch cfg.Otel.Exporter {
	case "":
		return nil, nil
	case "http":
		return exporters.ProvideHttp(cfg)
	case "grpc":
		return exporters.ProvideGrpc(cfg)
	default:
		return nil, fmt.Errorf("unknown otel exporter %q", cfg.Otel.Exporter)
	}
}

// Register installs the global tracer provider and propagator. Spans are
// still created when export is disabled so trace ids reach the logs.
func Register(lc fx.Lifecycle, cfg *config.Config) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, err := NewExporter(cfg)
	if err != nil {
		return err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.AppName),
		semconv.ServiceVersion(cfg.AppVersion),
		semconv.DeploymentEnvironment(cfg.AppEnv),
	))
	if err != nil {
		res = resource.Default()
	}

	ratio := cfg.Otel.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	}

	var tp *trace.TracerProvider
	if exporter == nil {
		zap.L().Info("trace export disabled")
		tp = trace.NewTracerProvider(opts...)
	} else {
		zap.L().Info("trace export enabled", zap.String("exporter", cfg.Otel.Exporter), zap.String("addr", cfg.Otel.Addr))
		tp = ProvideTrace(exporter, opts...)
	}
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return nil
}
