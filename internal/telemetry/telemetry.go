package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// exportInterval is short because a console session may last seconds.
const exportInterval = 5 * time.Second

// ShutdownFunc flushes and stops the exporters.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Enabled reports whether an OTLP endpoint is configured.
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

type provider struct {
	name     string
	shutdown ShutdownFunc
}

// InitTelemetry installs OTLP gRPC trace and metric providers when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. Exporter settings such as headers come
// from the standard OTEL_* variables. A provider that fails to start is
// skipped with a warning; the console keeps working without it.
func InitTelemetry(ctx context.Context, serviceName, version string) (ShutdownFunc, error) {
	if !Enabled() {
		log.Debug().Msg("OTEL_EXPORTER_OTLP_ENDPOINT not set, telemetry disabled")
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var providers []provider
	for _, start := range []struct {
		name string
		fn   func(context.Context, *resource.Resource) (ShutdownFunc, error)
	}{
		{"traces", startTracing},
		{"metrics", startMetrics},
	} {
		shutdown, err := start.fn(ctx, res)
		if err != nil {
			log.Warn().Err(err).Str("provider", start.name).Msg("telemetry provider not started")
			continue
		}
		providers = append(providers, provider{name: start.name, shutdown: shutdown})
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Debug().Str("service", serviceName).Str("version", version).Int("providers", len(providers)).Msg("telemetry started")

	return func(ctx context.Context) error {
		var errs []error
		for _, p := range providers {
			if err := p.shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s shutdown: %w", p.name, err))
			}
		}
		return errors.Join(errs...)
	}, nil
}

func startTracing(ctx context.Context, res *resource.Resource) (ShutdownFunc, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(exportInterval)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func startMetrics(ctx context.Context, res *resource.Resource) (ShutdownFunc, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
