package pool

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metrics singletons.
var (
	tracer trace.Tracer
	meter  metric.Meter
)

var (
	createCounter  metric.Int64Counter
	destroyCounter metric.Int64Counter
	acquireCounter metric.Int64Counter
	yieldHistogram metric.Int64Histogram
)

// The "result" attribute sets for the counters above.
var (
	okAttrs      = attribute.NewSet(attribute.String("result", "ok"))
	failAttrs    = attribute.NewSet(attribute.String("result", "error"))
	abandonAttrs = attribute.NewSet(attribute.String("result", "destroyed"))
)

func init() {
	const pkgname = `github.com/quay/lockcore/pool`
	tracer = otel.Tracer(pkgname)
	meter = otel.Meter(pkgname)

	createCounter = must(meter.Int64Counter("lock.create.count",
		metric.WithUnit("{call}"),
		metric.WithDescription("Count of lock allocations, by result."),
	))
	destroyCounter = must(meter.Int64Counter("lock.destroy.count",
		metric.WithUnit("{call}"),
		metric.WithDescription("Count of lock destructions, by result."),
	))
	acquireCounter = must(meter.Int64Counter("lock.acquire.count",
		metric.WithUnit("{call}"),
		metric.WithDescription("Count of lock acquisitions, by result."),
	))
	yieldHistogram = must(meter.Int64Histogram("lock.acquire.yields",
		metric.WithUnit("{yield}"),
		metric.WithDescription("Number of times a waiter yielded before an acquisition returned."),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 4, 8, 16, 64, 256, 1024, 4096),
	))
}

// Must returns the value if the error is nil, panicking otherwise.
func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}
