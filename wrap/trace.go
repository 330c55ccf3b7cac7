package wrap

import (
	"context"
	"time"

	"github.com/sghaida/decor/intercept"
	"go.uber.org/zap"
)

// Trace logs each call with its arguments, and its result or error with the
// elapsed time. Attached to a getter it logs the value read.
func Trace(logger *zap.Logger) intercept.Interceptor {
	logger = orNop(logger)
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		l := logger.With(zap.Stringer("member", inv.ID), zap.String("call_id", inv.CallID))
		l.Info("calling", zap.Any("args", inv.Args))

		start := time.Now()
		res, err := next(ctx, inv)
		elapsed := time.Since(start)

		if err != nil {
			l.Error("call failed", zap.Duration("elapsed", elapsed), zap.Error(err))
			return res, err
		}
		l.Info("returned", zap.Any("result", res), zap.Duration("elapsed", elapsed))
		return res, nil
	}
}
