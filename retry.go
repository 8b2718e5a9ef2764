package ratpack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kilo-411/ratpack/backoff"
)

// Retry derives a promise that re-attempts produce after a failure, up
// to retries additional attempts, waiting strategy.Delay between
// attempts. The delay suspends the execution instead of blocking its
// loop; other executions pinned to the loop keep running.
//
// produce is called once per attempt, on the execution. The last
// failure becomes the derived promise's failure outcome.
func Retry[T any](retries int, strategy backoff.Strategy, produce func(ctx context.Context) *Promise[T]) *Promise[T] {
	if strategy == nil {
		strategy = backoff.Default()
	}

	return &Promise[T]{upstream: func(ctx context.Context, down downstream[T]) error {
		var attempt func(ctx context.Context, n int) error
		attempt = func(ctx context.Context, n int) error {
			p := produce(ctx)
			if p == nil {
				return down.failure(ctx, fmt.Errorf("ratpack: Retry producer returned nil promise"))
			}
			return p.upstream(ctx, downstream[T]{
				success: down.success,
				failure: func(ctx context.Context, err error) error {
					if n > retries {
						return down.failure(ctx, err)
					}

					e, cerr := Current(ctx)
					if cerr != nil {
						return cerr
					}
					delay := strategy.Delay(n)
					e.logger.Debug("retrying after failure",
						slog.Int("attempt", n),
						slog.Duration("delay", delay),
						slog.String("error", err.Error()),
					)

					// Suspend until the timer fires, then re-attempt as a
					// fresh continuation.
					e.streamSubscribe(func(h *asyncHandle) {
						time.AfterFunc(delay, func() {
							h.complete(func(ctx context.Context) error {
								return attempt(ctx, n+1)
							})
						})
					})
					return nil
				},
			})
		}
		return attempt(ctx, 1)
	}}
}
