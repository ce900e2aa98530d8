package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"webintel/pkg/config"
)

// TracerName is the instrumentation name used for every span.
const TracerName = "webintel"

// Config holds tracer provider settings.
type Config struct {
	Enabled     bool
	SampleRatio float64
}

// DefaultConfig samples every root span.
func DefaultConfig() Config {
	return Config{Enabled: true, SampleRatio: 1.0}
}

// LoadConfigFromEnv reads TRACING_ENABLED and TRACING_SAMPLE_RATIO.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Enabled = config.GetEnvBool("TRACING_ENABLED", cfg.Enabled)
	cfg.SampleRatio = config.GetEnvFloat("TRACING_SAMPLE_RATIO", cfg.SampleRatio)
	if cfg.SampleRatio < 0 {
		cfg.SampleRatio = 0
	}
	if cfg.SampleRatio > 1 {
		cfg.SampleRatio = 1
	}
	return cfg
}

// InitTracerProvider installs the global tracer provider and propagator.
// The returned function flushes and shuts the provider down. When tracing
// is disabled the global no-op provider is left in place.
func InitTracerProvider(_ context.Context, cfg Config, opts ...sdktrace.TracerProviderOption) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	base := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	tp := sdktrace.NewTracerProvider(append(base, opts...)...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// GetTracer returns the application tracer from the current global provider.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts an internal span with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
