// Package tracing wires the OpenTelemetry trace pipeline. Tracing is
// disabled (no-op provider) unless an OTLP endpoint is configured.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/crew/internal/config"
)

const tracerName = "github.com/nextlevelbuilder/crew"

// Setup installs the global tracer provider. The returned shutdown func
// flushes pending spans; it is a no-op when telemetry is disabled.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("crew"),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	slog.Info("tracing enabled", "endpoint", cfg.Endpoint)

	return tp.Shutdown, nil
}

// Tracer returns the module tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartToolSpan opens a span for one tool execution.
func StartToolSpan(ctx context.Context, tool string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "tool."+tool,
		trace.WithAttributes(attribute.String("tool.name", tool)))
}

// StartLLMSpan opens a span for one model call.
func StartLLMSpan(ctx context.Context, agent string, messages int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "llm.converse",
		trace.WithAttributes(
			attribute.String("agent.name", agent),
			attribute.Int("llm.messages", messages),
		))
}
