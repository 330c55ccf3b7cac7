package wrap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/intercept"
	"github.com/sghaida/decor/wrap"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBreaker_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	cfg := wrap.DefaultBreakerConfig("todos")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5

	calls := 0
	base := func(context.Context, *intercept.Invocation) (any, error) {
		calls++
		return nil, errors.New("upstream down")
	}
	fn := intercept.Compose(intercept.StackOrder, base, wrap.Breaker(cfg, zap.New(core)))
	id := decl.Member[someService]("Fetch")

	for i := 0; i < 2; i++ {
		_, err := call(t, fn, id)
		require.Error(t, err)
	}
	assert.Equal(t, 2, calls)

	_, err := call(t, fn, id)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)

	assert.Equal(t, 1, logs.FilterMessage("circuit breaker state changed").Len())
	assert.Equal(t, 1, logs.FilterMessage("circuit breaker rejected call").Len())
}

func TestBreaker_PassesResults(t *testing.T) {
	t.Parallel()

	fn := intercept.Compose(intercept.StackOrder, returning("ok", nil), wrap.Breaker(wrap.DefaultBreakerConfig("b"), nil))
	res, err := call(t, fn, decl.Member[someService]("Fetch"))
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestDefaultBreakerConfig(t *testing.T) {
	t.Parallel()

	cfg := wrap.DefaultBreakerConfig("x")
	assert.Equal(t, "x", cfg.Name)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := wrap.NewMetrics("decor", reg)
	require.NoError(t, err)

	id := decl.Member[someService]("Fetch")
	ok := intercept.Compose(intercept.StackOrder, returning(1, nil), m.Interceptor())
	bad := intercept.Compose(intercept.StackOrder, returning(nil, assert.AnError), m.Interceptor())

	_, _ = call(t, ok, id)
	_, _ = call(t, ok, id)
	_, _ = call(t, bad, id)

	member := id.String()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calls.WithLabelValues(member, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues(member, "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))

	_, err = wrap.NewMetrics("decor", reg)
	assert.Error(t, err)

	_, err = wrap.NewMetrics("decor", nil)
	assert.NoError(t, err)
}

func TestSpan_RecordsCalls(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tp.Tracer("test")

	id := decl.Member[someService]("Fetch")
	ok := intercept.Compose(intercept.StackOrder, returning(1, nil), wrap.Span(tracer))
	bad := intercept.Compose(intercept.StackOrder, returning(nil, assert.AnError), wrap.Span(tracer))

	_, err := call(t, ok, id)
	require.NoError(t, err)
	_, err = call(t, bad, id)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, id.String(), spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestSpan_NilTracerUsesGlobal(t *testing.T) {
	t.Parallel()

	fn := intercept.Compose(intercept.StackOrder, returning("x", nil), wrap.Span(nil))
	res, err := call(t, fn, decl.Member[someService]("Fetch"))
	require.NoError(t, err)
	assert.Equal(t, "x", res)
}
