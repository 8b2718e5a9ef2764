package ratpack

import (
	"context"
	"fmt"
)

type ctxKey int

const (
	loopCtxKey ctxKey = iota
	execCtxKey
)

func contextWithLoop(ctx context.Context, bl *boundLoop) context.Context {
	return context.WithValue(ctx, loopCtxKey, bl)
}

func loopFromContext(ctx context.Context) (*boundLoop, bool) {
	bl, ok := ctx.Value(loopCtxKey).(*boundLoop)
	return bl, ok
}

func contextWithExecution(ctx context.Context, e *Execution) context.Context {
	return context.WithValue(ctx, execCtxKey, e)
}

func executionFromContext(ctx context.Context) (*Execution, bool) {
	e, ok := ctx.Value(execCtxKey).(*Execution)
	return e, ok
}

// Current returns the execution the calling continuation belongs to.
//
// The context is the handle: every continuation an execution dispatches
// receives a context tagged with that execution, and the loop's current
// slot is checked so a context leaked to a foreign goroutine cannot be
// used to touch execution state while the execution is not running.
// Off-execution calls fail with ErrUnmanagedGoroutine.
func Current(ctx context.Context) (*Execution, error) {
	e, ok := executionFromContext(ctx)
	if !ok || e == nil {
		return nil, ErrUnmanagedGoroutine
	}
	if e.loop.current.Load() != e {
		return nil, fmt.Errorf("execution %s is not active on its loop: %w", e.id.String(), ErrUnmanagedGoroutine)
	}
	return e, nil
}
