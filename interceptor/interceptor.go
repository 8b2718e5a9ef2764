package interceptor

import "context"

// Kind tags the category of work an interceptor is wrapping.
type Kind int

const (
	// KindCompute marks a continuation running on an execution's event loop.
	KindCompute Kind = iota

	// KindBlocking marks an offloaded operation running on the blocking pool.
	KindBlocking
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// Unit is the terminal function that executes the wrapped work.
type Unit func(ctx context.Context) error

// Interceptor wraps a Unit with cross-cutting logic. It receives the
// current context, the kind of work being wrapped, and the next unit to
// call. Interceptors MUST call next to continue the chain (unless
// short-circuiting on error). An error returned by the unit or by an
// inner interceptor propagates outward through each enclosing
// interceptor's return path.
type Interceptor func(ctx context.Context, kind Kind, next Unit) error

// Chain composes multiple interceptors into a single Interceptor.
// Interceptors are applied right-to-left: the first interceptor in the
// list is the outermost wrapper.
//
// Example: Chain(logging, tracing) executes as:
//
//	logging → tracing → unit
func Chain(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, kind Kind, next Unit) error {
		return Run(ctx, kind, interceptors, next)
	}
}

// Run executes unit wrapped by the given interceptors for the given kind.
// The chain is rebuilt per call, so a caller holding a growing interceptor
// slice picks up newly appended interceptors on the next dispatch but
// never retroactively.
func Run(ctx context.Context, kind Kind, interceptors []Interceptor, unit Unit) error {
	h := unit
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic := interceptors[i]
		prev := h
		h = func(ctx context.Context) error {
			return ic(ctx, kind, prev)
		}
	}
	return h(ctx)
}

type executionIDKey struct{}

// ContextWithExecutionID tags ctx with the owning execution's identifier
// so that interceptors can attach it to spans, metrics, and log lines.
func ContextWithExecutionID(ctx context.Context, execID string) context.Context {
	return context.WithValue(ctx, executionIDKey{}, execID)
}

// ExecutionIDFromContext returns the execution identifier tagged on ctx,
// or the empty string when none is present.
func ExecutionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(executionIDKey{}).(string)
	return s
}
