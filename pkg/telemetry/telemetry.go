package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Instruments bundles the gateway's tracer and metric instruments.
type Instruments struct {
	Tracer         trace.Tracer
	Meter          metric.Meter
	Uploads        metric.Int64Counter
	Queries        metric.Int64Counter
	BackendLatency metric.Float64Histogram
}

// Init initializes OpenTelemetry tracing and metrics.
// Traces and metrics are exported to rotating files under dir so a collector
// or an operator tailing the files can pick them up.
func Init(ctx context.Context, dir string) (*Instruments, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("pdfchat-gateway"),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	traceFile := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "gateway_traces.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricsFile := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "gateway_metrics.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metricsFile),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(10*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	tracer := tp.Tracer("pdfchat-gateway")
	meter := mp.Meter("pdfchat-gateway")

	uploads, err := meter.Int64Counter("gateway.uploads",
		metric.WithDescription("Total PDF uploads relayed to the backend"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create uploads counter: %w", err)
	}
	queries, err := meter.Int64Counter("gateway.queries",
		metric.WithDescription("Total document queries relayed to the backend"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create queries counter: %w", err)
	}
	latency, err := meter.Float64Histogram("gateway.backend.latency_ms",
		metric.WithDescription("Backend round-trip latency in milliseconds"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
		if err := mp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown meter provider", "error", err)
		}
		if err := traceFile.Close(); err != nil {
			slog.Error("failed to close trace file", "error", err)
		}
		if err := metricsFile.Close(); err != nil {
			slog.Error("failed to close metrics file", "error", err)
		}
	}

	return &Instruments{
		Tracer:         tracer,
		Meter:          meter,
		Uploads:        uploads,
		Queries:        queries,
		BackendLatency: latency,
	}, cleanup, nil
}

// Noop returns instruments backed by the global no-op providers, for use
// when telemetry is disabled or in tests.
func Noop() *Instruments {
	tracer := otel.Tracer("pdfchat-gateway")
	meter := otel.Meter("pdfchat-gateway")

	uploads, _ := meter.Int64Counter("gateway.uploads")
	queries, _ := meter.Int64Counter("gateway.queries")
	latency, _ := meter.Float64Histogram("gateway.backend.latency_ms")

	return &Instruments{
		Tracer:         tracer,
		Meter:          meter,
		Uploads:        uploads,
		Queries:        queries,
		BackendLatency: latency,
	}
}
