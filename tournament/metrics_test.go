package tournament

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/quay/lockcore/pool"
	"github.com/quay/lockcore/test"
)

// TestMetrics installs a global MeterProvider. It's the only test in the
// package that does so.
func TestMetrics(t *testing.T) {
	ctx := test.Logging(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			t.Error(err)
		}
	})
	otel.SetMeterProvider(mp)

	pl := pool.New()
	err := Run(ctx, pl, 2, func(ctx context.Context, p *Participant) error {
		if err := p.Acquire(ctx); err != nil {
			return err
		}
		return p.Release(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	want := map[string]int64{
		"tournament.create.count":  1,
		"tournament.acquire.count": 2,
		"tournament.release.count": 2,
		"lock.create.count":        1,
		"lock.acquire.count":       2,
	}
	got := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if v, _ := dp.Attributes.Value(attribute.Key("result")); v.AsString() == "ok" {
					got[m.Name] += dp.Value
				}
			}
		}
	}
	for name, w := range want {
		if got[name] != w {
			t.Errorf("%s: got: %d, want: %d", name, got[name], w)
		}
	}
}
