package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

// instrumentation scope of spans started by the services
const scope = "github.com/tvet-apply/applicants-api"

// InitTracer installs the global tracer provider and W3C propagators.
// Without an OTLP endpoint nothing is installed and spans are no-ops.
func InitTracer(obs config.ObservabilityConfig, environment string) (func(context.Context) error, error) {
	if obs.OTLPEndpoint == "" {
		logger.Info("Tracing disabled: O11Y_OTLP_ENDPOINT not set")
		return func(context.Context) error { return nil }, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(obs.OTLPEndpoint)}
	if obs.OTLPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := serviceResource(ctx, obs, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		// batching keeps a slow collector off the request path
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(2*time.Second),
			sdktrace.WithExportTimeout(5*time.Second),
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithMaxExportBatchSize(512)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(obs.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry tracer initialized",
		zap.String("service", obs.ServiceName),
		zap.String("environment", environment),
		zap.String("endpoint", obs.OTLPEndpoint),
		zap.Float64("sample_ratio", obs.SampleRatio))

	return tp.Shutdown, nil
}

func serviceResource(ctx context.Context, obs config.ObservabilityConfig, environment string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(obs.ServiceName),
		attribute.String("deployment.environment.name", environment),
	}
	for key, value := range map[attribute.Key]string{
		semconv.ServiceNamespaceKey:  obs.ServiceNamespace,
		semconv.ServiceVersionKey:    obs.ServiceVersion,
		semconv.ServiceInstanceIDKey: obs.ServiceInstanceID,
	} {
		if value != "" {
			attrs = append(attrs, key.String(value))
		}
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// sampler honours the caller's decision and samples new traces at ratio.
// Ratios outside (0, 1) sample everything.
func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartSpan starts a child of the span in ctx
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(scope).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndSpan records err on span (if any) and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
