package wrap

import (
	"context"

	"github.com/sghaida/decor/intercept"
	"go.uber.org/zap"
)

// Safe logs and swallows any error or panic from the inner call. The call
// then reports success with a nil result.
func Safe(logger *zap.Logger) intercept.Interceptor {
	logger = orNop(logger)
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (res any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logFailure(logger, inv, &SafeWrapError{ID: inv.ID, Panic: rec})
				res, err = nil, nil
			}
		}()

		res, err = next(ctx, inv)
		if err != nil {
			logFailure(logger, inv, &SafeWrapError{ID: inv.ID, Err: err})
			return nil, nil
		}
		return res, nil
	}
}

func logFailure(logger *zap.Logger, inv *intercept.Invocation, err *SafeWrapError) {
	logger.Error("call failed",
		zap.Stringer("member", inv.ID),
		zap.String("call_id", inv.CallID),
		zap.Bool("panic", err.Panic != nil),
		zap.Error(err),
	)
}
