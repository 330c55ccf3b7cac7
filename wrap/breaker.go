package wrap

import (
	"context"
	"time"

	"github.com/sghaida/decor/intercept"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for Breaker.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	// The breaker trips once MinRequests calls were seen in the current
	// interval and the failure ratio reaches FailureThreshold.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration named name.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Breaker guards the inner call with a circuit breaker. While the breaker is
// open calls fail fast with gobreaker.ErrOpenState without reaching next.
//
// One breaker is shared by every call through the returned interceptor.
func Breaker(cfg BreakerConfig, logger *zap.Logger) intercept.Interceptor {
	logger = orNop(logger)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		res, err := cb.Execute(func() (any, error) {
			return next(ctx, inv)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			logger.Warn("circuit breaker rejected call",
				zap.String("breaker", cfg.Name),
				zap.Stringer("member", inv.ID),
				zap.Error(err),
			)
		}
		return res, err
	}
}
