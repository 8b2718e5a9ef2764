// Package interceptor provides composable interceptors for execution
// segments.
//
// An [Interceptor] is a function that wraps a unit of work dispatched by
// an execution — either a continuation running on the execution's event
// loop ([KindCompute]) or an offloaded operation running on the blocking
// pool ([KindBlocking]). Interceptors are applied right-to-left: the
// first interceptor in the slice is the outermost wrapper.
//
//	// logging → tracing → unit
//	chain := interceptor.Chain(interceptor.Logging(logger), interceptor.Tracing())
//
// Interceptors attach to an execution for its whole life and wrap every
// subsequent dispatch of the matching category; units already dispatched
// are never re-wrapped.
//
// # Built-in Interceptors
//
//   - [Logging] — logs kind, duration, and outcome of each segment
//   - [Tracing] — wraps each segment in an OpenTelemetry span
//   - [Metrics] — records per-segment duration and outcome counters
//
// # Writing Custom Interceptors
//
//	func MyInterceptor() interceptor.Interceptor {
//	    return func(ctx context.Context, kind interceptor.Kind, next interceptor.Unit) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Interceptors MUST call next to continue the chain unless intentionally
// short-circuiting. Interceptors run on whatever goroutine dispatches the
// unit (the event loop for compute work, a pool worker for blocking work)
// and must not touch execution state.
package interceptor
