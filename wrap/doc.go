// Package wrap provides ready-made interceptors for intercept chains.
//
//	b := intercept.NewBuilder()
//	id := decl.Member[SomeService]("DoSomething")
//	_ = b.Attach(id, wrap.Timeout(time.Second), intercept.StackOrder)
//	_ = b.Attach(id, wrap.Safe(logger), intercept.StackOrder)
//	call := b.Build(id, base)
//
// Safe swallows errors and panics after logging them. Timeout stops waiting
// for the inner call at the deadline but never stops the inner call itself.
// Cache memoizes results per receiver in a meta.Store, so deleting the
// cache entry is how results are invalidated.
package wrap

import "go.uber.org/zap"

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
