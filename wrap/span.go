package wrap

import (
	"context"

	"github.com/sghaida/decor/intercept"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used when Span gets a nil tracer.
const TracerName = "github.com/sghaida/decor/wrap"

// Span runs each call inside an OpenTelemetry span named after the member.
// The span context is passed to the inner call through ctx.
func Span(tracer trace.Tracer) intercept.Interceptor {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		ctx, span := tracer.Start(ctx, inv.ID.String(),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("decor.member", inv.ID.Member()),
				attribute.String("decor.call_id", inv.CallID),
				attribute.Int("decor.args", len(inv.Args)),
			),
		)
		defer span.End()

		res, err := next(ctx, inv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		span.SetStatus(codes.Ok, "")
		return res, nil
	}
}
