package tournament

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter  = otel.Meter("github.com/quay/lockcore/tournament")
	tracer = otel.Tracer("github.com/quay/lockcore/tournament")

	createCounter  metric.Int64Counter
	acquireCounter metric.Int64Counter
	releaseCounter metric.Int64Counter
)

var metricInit = sync.OnceValue(func() (err error) {
	createCounter, err = meter.Int64Counter("tournament.create.count",
		metric.WithUnit("{call}"),
		metric.WithDescription("Count of tournament trees built, by result."),
	)
	if err != nil {
		return err
	}
	acquireCounter, err = meter.Int64Counter("tournament.acquire.count",
		metric.WithUnit("{call}"),
		metric.WithDescription("Count of tree acquisitions, by result."),
	)
	if err != nil {
		return err
	}
	releaseCounter, err = meter.Int64Counter("tournament.release.count",
		metric.WithUnit("{call}"),
		metric.WithDescription("Count of tree releases, by result."),
	)
	if err != nil {
		return err
	}
	return nil
})

var (
	tournamentKey   = attribute.Key("tournament")
	participantKey  = attribute.Key("participant")
	participantsKey = attribute.Key("participants")
)

var (
	okAttrs   = attribute.NewSet(attribute.String("result", "ok"))
	failAttrs = attribute.NewSet(attribute.String("result", "error"))
)
