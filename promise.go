package ratpack

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Result is a captured success-or-failure outcome.
type Result[T any] struct {
	Value T
	Err   error
}

// Success reports whether the result carries a value rather than an error.
func (r Result[T]) Success() bool { return r.Err == nil }

// exchange is the one-shot resolution flag shared by all terminal calls
// on a fulfiller. It is the sole piece of execution-adjacent state that
// may be touched from arbitrary goroutines, so the transition from
// unresolved to resolved is a single compare-and-swap.
type exchange struct {
	resolved atomic.Bool
	cause    atomic.Pointer[error]
}

// win attempts to claim the exchange. The winner's cause (nil for a
// success) is retained so losing calls can report what they overlapped.
func (x *exchange) win(cause error) bool {
	if !x.resolved.CompareAndSwap(false, true) {
		return false
	}
	if cause != nil {
		x.cause.Store(&cause)
	}
	return true
}

func (x *exchange) resolvedCause() error {
	if p := x.cause.Load(); p != nil {
		return *p
	}
	return nil
}

// Fulfiller is the write side of a promise: it accepts exactly one
// terminal call, Success or Error, from any goroutine. Losing calls are
// never propagated downstream; each one is reported once as an
// overlapping-fulfillment diagnostic and discarded.
type Fulfiller[T any] struct {
	ex     *exchange
	h      *asyncHandle
	down   downstream[T]
	logger *slog.Logger
}

// Success resolves the promise with value. The delivery continuation is
// scheduled on the owning execution's loop.
func (f *Fulfiller[T]) Success(value T) {
	if !f.ex.win(nil) {
		f.reportOverlap("success discarded: promise already fulfilled")
		return
	}
	f.h.complete(func(ctx context.Context) error {
		return f.down.success(ctx, value)
	})
}

// Error resolves the promise with err as the failure outcome.
func (f *Fulfiller[T]) Error(err error) {
	if !f.ex.win(err) {
		f.reportOverlap("error discarded: promise already fulfilled")
		return
	}
	f.h.complete(func(ctx context.Context) error {
		return f.down.failure(ctx, err)
	})
}

func (f *Fulfiller[T]) reportOverlap(msg string) {
	attrs := []any{slog.String("error", ErrOverlappingFulfillment.Error())}
	if cause := f.ex.resolvedCause(); cause != nil {
		attrs = append(attrs, slog.String("resolved_error", cause.Error()))
	}
	f.logger.Error(msg, attrs...)
}

// downstream receives exactly one of success or failure, on the owning
// execution's loop. An error returned from either side bubbles to the
// execution's error handler.
type downstream[T any] struct {
	success func(ctx context.Context, value T) error
	failure func(ctx context.Context, err error) error
}

// Promise is the read-only, composable view of an eventual value.
// A promise does nothing until a terminal operation (Then or Result)
// subscribes it from a continuation of the owning execution.
type Promise[T any] struct {
	upstream func(ctx context.Context, down downstream[T]) error
}

// NewPromise returns a promise whose eventual value is produced by
// fulfill, which receives the Fulfiller when a terminal operation
// subscribes. If fulfill returns an error (or panics) before resolving
// the fulfiller, that is treated as an implicit Error call, under the
// same exchange-once guard.
func NewPromise[T any](fulfill func(f *Fulfiller[T]) error) *Promise[T] {
	return &Promise[T]{upstream: func(ctx context.Context, down downstream[T]) error {
		e, err := Current(ctx)
		if err != nil {
			return err
		}

		e.streamSubscribe(func(h *asyncHandle) {
			f := &Fulfiller[T]{ex: &exchange{}, h: h, down: down, logger: e.logger}

			ferr := func() (ferr error) {
				defer func() {
					if r := recover(); r != nil {
						ferr = fmt.Errorf("panic in fulfill action: %v", r)
					}
				}()
				return fulfill(f)
			}()
			if ferr != nil {
				f.Error(ferr)
			}
		})
		return nil
	}}
}

// Then subscribes the promise and consumes its value on the owning
// execution's loop. A failure outcome — or an error returned by then —
// reaches the execution's error handler unless an OnError route
// consumed it first. Then itself only fails when called off-execution.
func (p *Promise[T]) Then(ctx context.Context, then func(ctx context.Context, value T) error) error {
	return p.upstream(ctx, downstream[T]{
		success: then,
		failure: func(_ context.Context, err error) error { return err },
	})
}

// OnError routes failure outcomes to handler, which runs on the owning
// execution's loop. The then-path is skipped for a failed promise. An
// error returned by handler reaches the execution's error handler.
func (p *Promise[T]) OnError(handler func(ctx context.Context, err error) error) *Promise[T] {
	return &Promise[T]{upstream: func(ctx context.Context, down downstream[T]) error {
		return p.upstream(ctx, downstream[T]{
			success: down.success,
			failure: handler,
		})
	}}
}

// Result subscribes the promise and delivers the captured outcome,
// success or failure, as a single Result value.
func (p *Promise[T]) Result(ctx context.Context, fn func(ctx context.Context, r Result[T]) error) error {
	return p.upstream(ctx, downstream[T]{
		success: func(ctx context.Context, value T) error {
			return fn(ctx, Result[T]{Value: value})
		},
		failure: func(ctx context.Context, err error) error {
			return fn(ctx, Result[T]{Err: err})
		},
	})
}

// Map derives a promise by transforming the value. An error from fn
// becomes the derived promise's failure outcome. (A package function
// because Go methods cannot introduce type parameters.)
func Map[T, U any](p *Promise[T], fn func(value T) (U, error)) *Promise[U] {
	return &Promise[U]{upstream: func(ctx context.Context, down downstream[U]) error {
		return p.upstream(ctx, downstream[T]{
			success: func(ctx context.Context, value T) error {
				mapped, err := fn(value)
				if err != nil {
					return down.failure(ctx, err)
				}
				return down.success(ctx, mapped)
			},
			failure: down.failure,
		})
	}}
}

// FlatMap derives a promise by chaining an asynchronous transformation:
// fn runs on the execution once the source resolves, and the promise it
// returns is subscribed in place.
func FlatMap[T, U any](p *Promise[T], fn func(value T) *Promise[U]) *Promise[U] {
	return &Promise[U]{upstream: func(ctx context.Context, down downstream[U]) error {
		return p.upstream(ctx, downstream[T]{
			success: func(ctx context.Context, value T) error {
				next := fn(value)
				if next == nil {
					return down.failure(ctx, fmt.Errorf("ratpack: FlatMap transform returned nil promise"))
				}
				return next.upstream(ctx, down)
			},
			failure: down.failure,
		})
	}}
}
