package interceptor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for ratpack tracing.
const tracerName = "github.com/Kilo-411/ratpack"

// Tracing returns an interceptor that wraps each unit in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this interceptor becomes a pass-through with zero
// overhead.
//
// Span attributes include: exec.id and exec.kind ("compute" or
// "blocking"). On error, the span status is set to codes.Error with the
// error message.
func Tracing() Interceptor {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing interception using the provided
// tracer. This variant allows injecting a specific TracerProvider for
// testing or when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Interceptor {
	return func(ctx context.Context, kind Kind, next Unit) error {
		ctx, span := tracer.Start(ctx, "exec.segment",
			trace.WithAttributes(
				attribute.String("exec.id", ExecutionIDFromContext(ctx)),
				attribute.String("exec.kind", kind.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
