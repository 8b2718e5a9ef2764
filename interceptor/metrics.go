package interceptor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for ratpack metrics.
const meterName = "github.com/Kilo-411/ratpack"

// Metrics returns an interceptor that records per-segment metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this interceptor becomes a pass-through.
//
// Instruments:
//   - exec.segment.duration (Float64Histogram): segment time in seconds,
//     with attributes: kind, status ("ok" or "error")
//   - exec.segments (Int64Counter): total segments dispatched,
//     with attributes: kind, status ("ok" or "error")
func Metrics() Interceptor {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics interception using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Interceptor {
	// Create instruments once at interceptor construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the interceptor degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"exec.segment.duration",
		metric.WithDescription("Duration of execution segments in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	segments, sErr := meter.Int64Counter(
		"exec.segments",
		metric.WithDescription("Total number of execution segments dispatched"),
		metric.WithUnit("{segment}"),
	)
	_ = sErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, kind Kind, next Unit) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("kind", kind.String()),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		segments.Add(ctx, 1, attrs)

		return err
	}
}
