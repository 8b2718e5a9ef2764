package ratpack

import (
	"context"
	"fmt"

	"github.com/Kilo-411/ratpack/interceptor"
)

// Blocking offloads op to the blocking pool and returns a promise for
// its outcome. The owning execution stays suspended until the result
// returns; the pool goroutine never touches execution state — it
// captures the outcome as a Result and schedules the delivery
// continuation back onto the execution's bound loop.
//
// The operation runs wrapped by the execution's interceptor chain for
// the blocking category, snapshotted at subscription time.
func Blocking[T any](ctx context.Context, op func() (T, error)) *Promise[T] {
	return &Promise[T]{upstream: func(ctx context.Context, down downstream[T]) error {
		e, err := Current(ctx)
		if err != nil {
			return err
		}

		// Snapshot on the loop; the pool goroutine must not read the
		// live chain while the execution keeps running. The pool-side
		// context carries the execution id for observability but not the
		// execution handle, so nothing on a worker can pass the
		// current-execution check.
		chain := append([]interceptor.Interceptor(nil), e.interceptors...)
		poolCtx := interceptor.ContextWithExecutionID(context.Background(), e.id.String())
		pool := e.ctrl.pool

		e.streamSubscribe(func(h *asyncHandle) {
			pool.Submit(func() {
				var res Result[T]

				unit := func(_ context.Context) (uerr error) {
					defer func() {
						if r := recover(); r != nil {
							uerr = fmt.Errorf("panic in blocking operation: %v", r)
						}
					}()
					value, oerr := op()
					if oerr != nil {
						return oerr
					}
					res.Value = value
					return nil
				}

				if ierr := interceptor.Run(poolCtx, interceptor.KindBlocking, chain, unit); ierr != nil {
					res.Err = ierr
				}

				h.complete(func(ctx context.Context) error {
					if res.Err != nil {
						return down.failure(ctx, res.Err)
					}
					return down.success(ctx, res.Value)
				})
			})
		})
		return nil
	}}
}
