package wrap

import (
	"context"
	"reflect"

	"github.com/sghaida/decor/intercept"
	"go.uber.org/zap"
)

// Signature is the expected argument and result types of a member.
// A nil Result skips the result check.
type Signature struct {
	Args   []reflect.Type
	Result reflect.Type
}

// TypeCheck logs argument count, argument type and result type mismatches
// against sig. It never blocks the call.
func TypeCheck(logger *zap.Logger, sig Signature) intercept.Interceptor {
	logger = orNop(logger)
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		l := logger.With(zap.Stringer("member", inv.ID))

		if len(inv.Args) != len(sig.Args) {
			l.Warn("argument count mismatch", zap.Int("want", len(sig.Args)), zap.Int("got", len(inv.Args)))
		}
		for i, arg := range inv.Args {
			if i >= len(sig.Args) {
				break
			}
			if !conforms(arg, sig.Args[i]) {
				l.Warn("argument type mismatch",
					zap.Int("index", i),
					zap.Stringer("want", sig.Args[i]),
					zap.String("got", typeString(arg)),
				)
			}
		}

		res, err := next(ctx, inv)
		if err == nil && sig.Result != nil && !conforms(res, sig.Result) {
			l.Warn("return type mismatch", zap.Stringer("want", sig.Result), zap.String("got", typeString(res)))
		}
		return res, err
	}
}

// conforms reports whether v can be held by a variable of type want.
func conforms(v any, want reflect.Type) bool {
	if want == nil {
		return true
	}
	if v == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		default:
			return false
		}
	}
	return reflect.TypeOf(v).AssignableTo(want)
}

func typeString(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
