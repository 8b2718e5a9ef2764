// Package ratpack provides an asynchronous execution core for Go: many
// independent logical tasks (executions), each guaranteed to run on at
// most one goroutine at a time, with non-blocking suspension for
// promises, offloaded blocking work, and bridged event streams.
//
// # Quick Start
//
//	c, err := ratpack.New(
//	    ratpack.WithLoops(4),
//	    ratpack.WithInterceptors(interceptor.Tracing(), interceptor.Metrics()),
//	)
//	if err != nil { ... }
//
//	err = c.Exec().
//	    OnError(func(err error) { log.Println("failed:", err) }).
//	    Start(context.Background(), func(ctx context.Context) error {
//	        return ratpack.Blocking(ctx, fetchUser).
//	            Then(ctx, func(ctx context.Context, u User) error {
//	                // runs back on the execution's event loop
//	                return nil
//	            })
//	    })
//
// # Architecture
//
// An Execution is pinned to one event loop and owns a serial queue of
// continuations. It suspends — without blocking the loop — while a
// promise, a blocking offload, or a bridged stream is outstanding, and
// completes once the queue drains with nothing outstanding. The context
// passed to every continuation is the execution handle; entry points
// check it, so touching execution state from an unmanaged goroutine
// fails fast instead of corrupting state.
//
// The Fulfiller/Promise pair is the one-shot handoff primitive: exactly
// one terminal call wins, decided by an atomic exchange that is the sole
// synchronization point between foreign goroutines and the execution.
// Overlapping fulfillments are logged and discarded, never propagated.
//
// Interceptors (see the interceptor package) wrap every continuation
// and offloaded operation an execution dispatches, tagged by category,
// in registration order.
//
// The loop and workpool packages provide the default event-loop and
// blocking-pool collaborators; both can be replaced through options.
package ratpack
