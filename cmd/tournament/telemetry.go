package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/quay/lockcore/toolkit/log"
)

const serviceName = `github.com/quay/lockcore/cmd/tournament`

type telemetryConfig struct {
	Enabled  bool
	Protocol string
}

// Setup installs the default [slog.Logger] and, if enabled, the global OTel
// providers. The returned function flushes and stops whatever was started.
func (c *telemetryConfig) Setup(ctx context.Context, level slog.Level) (func(context.Context) error, error) {
	if !c.Enabled {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(log.WrapHandler(h)))
		return func(context.Context) error { return nil }, nil
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", "tournament")))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var (
		spanExp   sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
		logExp    sdklog.Exporter
	)
	switch c.Protocol {
	case "grpc":
		if spanExp, err = otlptracegrpc.New(ctx); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetricgrpc.New(ctx); err != nil {
			return nil, err
		}
		if logExp, err = otlploggrpc.New(ctx); err != nil {
			return nil, err
		}
	case "http":
		if spanExp, err = otlptracehttp.New(ctx); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetrichttp.New(ctx); err != nil {
			return nil, err
		}
		if logExp, err = otlploghttp.New(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown OTLP protocol %q", c.Protocol)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(r),
		sdktrace.WithBatcher(spanExp),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(r),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(r),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)

	h := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))
	slog.SetDefault(slog.New(log.WrapHandlerLevel(h, level)))

	return func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}, nil
}
