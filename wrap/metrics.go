package wrap

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sghaida/decor/intercept"
)

// Metrics counts intercepted calls and observes their duration.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the call collectors under namespace and registers them
// with reg. A nil reg skips registration.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of intercepted calls",
			},
			[]string{"member", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Intercepted call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"member"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Calls, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Interceptor records every call through it. outcome is "ok" or "error".
func (m *Metrics) Interceptor() intercept.Interceptor {
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		member := inv.ID.String()
		start := time.Now()

		res, err := next(ctx, inv)

		m.Duration.WithLabelValues(member).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.Calls.WithLabelValues(member, outcome).Inc()
		return res, err
	}
}
