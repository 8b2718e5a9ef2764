package ratpack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/Kilo-411/ratpack/id"
	"github.com/Kilo-411/ratpack/interceptor"
)

// segment is one queued continuation. Whatever error it returns (or
// panic it raises) is routed to the execution's error handler unless a
// promise downstream consumed it first.
type segment func(ctx context.Context) error

// Execution is a logical task pinned to one event loop. Its
// continuations run serially, in enqueue order, only on that loop; at
// any instant at most one goroutine executes code belonging to it.
//
// An execution suspends when its queue is empty but asynchronous work
// (a promise, an offloaded blocking operation, a bridged stream) has
// registered interest, and completes when the queue drains with no
// interest outstanding. Completion releases the execution: the
// completion handler fires exactly once and later continuations are
// discarded with a diagnostic.
type Execution struct {
	id     id.ExecutionID
	ctrl   *Controller
	loop   *boundLoop
	logger *slog.Logger

	// mu guards the queue and the suspension bookkeeping. It is the one
	// lock foreign goroutines may take, and they take it only to hand
	// continuations over; the continuations themselves run on the loop.
	mu       sync.Mutex
	queue    []segment
	pending  int
	draining bool
	done     bool

	// interceptors grows only on the bound loop while this execution is
	// current. Dispatch re-reads it per segment so interceptors added
	// mid-execution wrap all later segments but never earlier ones.
	interceptors []interceptor.Interceptor

	onError    *errorGuard
	onComplete func(ctx context.Context, e *Execution)

	// ctx is the handle passed to every continuation: loop identity,
	// execution identity, and whatever the context populator seeded.
	ctx context.Context
}

// ID returns the execution's unique identifier.
func (e *Execution) ID() id.ExecutionID { return e.id }

// Controller returns the controller that launched this execution.
func (e *Execution) Controller() *Controller { return e.ctrl }

// EventLoop returns the loop this execution is pinned to, usable as a
// Starter target for co-locating follow-up executions.
func (e *Execution) EventLoop() EventLoop { return e.loop }

func newExecution(c *Controller, bl *boundLoop, guard *errorGuard, onComplete func(context.Context, *Execution)) *Execution {
	e := &Execution{
		id:           id.NewExecutionID(),
		ctrl:         c,
		loop:         bl,
		interceptors: append([]interceptor.Interceptor(nil), c.interceptors...),
		onError:      guard,
		onComplete:   onComplete,
	}
	e.logger = c.logger.With(slog.String("execution_id", e.id.String()))
	guard.logger = e.logger

	ctx := contextWithLoop(context.Background(), bl)
	ctx = contextWithExecution(ctx, e)
	ctx = interceptor.ContextWithExecutionID(ctx, e.id.String())
	e.ctx = ctx

	return e
}

// begin queues the initial continuation and drains. Must run on the
// bound loop.
func (e *Execution) begin(populate func(context.Context) context.Context, action func(context.Context) error) {
	initial := func(ctx context.Context) error {
		if populate != nil {
			e.ctx = populate(e.ctx)
			ctx = e.ctx
		}
		return action(ctx)
	}

	e.mu.Lock()
	e.queue = append(e.queue, initial)
	e.draining = true
	e.mu.Unlock()

	e.drain()
}

// drain runs queued continuations until the queue empties, then decides
// between suspension and completion. It only ever runs on the bound
// loop goroutine; the current-slot CAS below turns any violation of
// that into a loud diagnostic instead of silent state corruption.
func (e *Execution) drain() {
	if !e.loop.current.CompareAndSwap(nil, e) {
		if other := e.loop.current.Load(); other != e {
			e.logger.Error("refusing to drain: loop is mid-execution",
				slog.String("error", ErrExecutionBound.Error()),
				slog.String("bound_execution_id", boundID(other)),
			)
			e.loop.Submit(e.drain)
		}
		return
	}

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			finished := e.pending == 0 && !e.done
			if finished {
				e.done = true
			}
			e.draining = false
			e.mu.Unlock()

			e.loop.current.Store(nil)
			if finished {
				e.runCompletion()
			}
			return
		}
		seg := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.dispatch(seg)
	}
}

func boundID(e *Execution) string {
	if e == nil {
		return ""
	}
	return e.id.String()
}

// dispatch runs one continuation wrapped by the current interceptor
// chain for the compute category. The chain is re-applied per segment.
func (e *Execution) dispatch(seg segment) {
	defer func() {
		// An interceptor that panics must not kill the loop goroutine.
		if r := recover(); r != nil {
			e.logger.Error("interceptor panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			e.routeError(fmt.Errorf("panic in interceptor: %v", r))
		}
	}()

	unit := func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("continuation panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("panic in continuation: %v", r)
			}
		}()
		return seg(ctx)
	}

	if err := interceptor.Run(e.ctx, interceptor.KindCompute, e.interceptors, unit); err != nil {
		e.routeError(err)
	}
}

// routeError delivers an uncaught continuation failure to the
// execution's error handler. Runs on the bound loop.
func (e *Execution) routeError(err error) {
	e.onError.handle(err)
}

func (e *Execution) runCompletion() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("completion handler panicked", slog.Any("panic", r))
		}
	}()

	if related, dropped := e.onError.relatedCauses(); len(related) > 0 {
		e.logger.Error("errors suppressed after handler saturation",
			slog.Int("suppressed", len(related)+dropped),
			slog.String("last_reported", e.onError.accepted[len(e.onError.accepted)-1].Error()),
			slog.String("error", errors.Join(related...).Error()),
		)
	}

	e.logger.Debug("execution complete")
	if e.onComplete != nil {
		// The completion context carries loop identity but no
		// execution: the execution is torn down, and a Starter invoked
		// from here may bind a fresh one to the loop synchronously.
		e.onComplete(contextWithLoop(context.Background(), e.loop), e)
	}
}

// enqueue hands a continuation to the execution from any goroutine and
// wakes the drain if the execution is suspended.
func (e *Execution) enqueue(seg segment) {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		e.logger.Error("continuation enqueued after execution completed; discarded")
		return
	}
	e.queue = append(e.queue, seg)
	wake := !e.draining
	if wake {
		e.draining = true
	}
	e.mu.Unlock()

	if wake {
		e.loop.Submit(e.drain)
	}
}

// streamSubscribe registers interest in an asynchronous result: the
// execution will not complete until the returned handle is resolved via
// complete. Must be called on the execution.
func (e *Execution) streamSubscribe(fn func(h *asyncHandle)) {
	e.mu.Lock()
	e.pending++
	e.mu.Unlock()

	fn(&asyncHandle{e: e})
}

// asyncHandle is the write side of a registered interest. event
// schedules an intermediate continuation; complete schedules the final
// one and releases the interest. Both are safe from arbitrary
// goroutines — this is the bridge foreign completions re-enter through.
type asyncHandle struct {
	e *Execution
}

func (h *asyncHandle) event(seg segment) {
	h.e.enqueue(seg)
}

func (h *asyncHandle) complete(seg segment) {
	e := h.e

	e.mu.Lock()
	e.pending--
	if e.done {
		e.mu.Unlock()
		e.logger.Error("continuation enqueued after execution completed; discarded")
		return
	}
	e.queue = append(e.queue, seg)
	wake := !e.draining
	if wake {
		e.draining = true
	}
	e.mu.Unlock()

	if wake {
		e.loop.Submit(e.drain)
	}
}

// AddInterceptor attaches ic to the current execution for the rest of
// its life and immediately runs continuation wrapped by the full chain
// including ic. Later continuations of the matching category are
// wrapped in registration order, first registered outermost;
// continuations already dispatched are unaffected.
func AddInterceptor(ctx context.Context, ic interceptor.Interceptor, continuation func(context.Context) error) error {
	e, err := Current(ctx)
	if err != nil {
		return err
	}

	e.interceptors = append(e.interceptors, ic)
	return interceptor.Run(ctx, interceptor.KindCompute, e.interceptors, continuation)
}

// maxErrorThreshold bounds how many uncaught errors the handler accepts
// before it is considered caught in an error loop.
const maxErrorThreshold = 5

// maxSuppressed bounds the ring of causes retained after saturation.
const maxSuppressed = 16

// errorGuard wraps an execution's error handler with an overflow guard:
// after maxErrorThreshold accepted errors, further errors are attached
// to the most recent reported one as related-but-suppressed context and
// a single saturation diagnostic is emitted, so an error-handling
// feedback loop does bounded work.
type errorGuard struct {
	handler   func(error)
	logger    *slog.Logger
	accepted  []error
	related   []error
	dropped   int
	saturated bool
}

func (g *errorGuard) handle(err error) {
	if len(g.accepted) < maxErrorThreshold {
		g.accepted = append(g.accepted, err)
		g.invoke(err)
		return
	}

	if !g.saturated {
		g.saturated = true
		g.logger.Error("error handler saturated (might be caught in an error loop)",
			slog.Int("threshold", maxErrorThreshold),
			slog.String("error", fmt.Errorf("%w: %w", ErrHandlerSaturated, errors.Join(g.accepted...)).Error()),
		)
	}

	// Attach as related context to the most recent reported error,
	// keeping only the newest causes.
	if len(g.related) == maxSuppressed {
		copy(g.related, g.related[1:])
		g.related = g.related[:maxSuppressed-1]
		g.dropped++
	}
	g.related = append(g.related, err)
}

// relatedCauses reports the post-saturation causes retained by the ring,
// with how many older ones were dropped to stay within the bound.
func (g *errorGuard) relatedCauses() ([]error, int) {
	return g.related, g.dropped
}

// invoke calls the user handler; a panic inside it is fed back through
// the guard as a fresh error, which is what the threshold exists for.
func (g *errorGuard) invoke(err error) {
	defer func() {
		if r := recover(); r != nil {
			g.handle(fmt.Errorf("panic in error handler: %v", r))
		}
	}()
	g.handler(err)
}
