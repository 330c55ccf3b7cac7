package wrap

import (
	"context"
	"time"

	"github.com/sghaida/decor/intercept"
)

type outcome struct {
	res      any
	err      error
	panicked bool
	rec      any
}

// Timeout races the inner call against d.
//
// If d elapses first the call fails with a *TimeoutError. The inner call is
// not signalled; it runs to completion in its own goroutine and its result is
// dropped. A panic in the inner call is re-raised on the caller's goroutine.
// Cancelling ctx also stops the wait and returns ctx.Err().
func Timeout(d time.Duration) intercept.Interceptor {
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		done := make(chan outcome, 1)
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					done <- outcome{panicked: true, rec: rec}
				}
			}()
			res, err := next(ctx, inv)
			done <- outcome{res: res, err: err}
		}()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case o := <-done:
			if o.panicked {
				panic(o.rec)
			}
			return o.res, o.err
		case <-timer.C:
			return nil, &TimeoutError{ID: inv.ID, After: d}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
