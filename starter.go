package ratpack

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Starter configures and launches one execution. Obtain one from
// Controller.Exec; a Starter is single-use.
//
// No result value is returned to the caller of Start: every outcome of
// the launched execution flows through the error and completion
// handlers.
type Starter struct {
	ctrl       *Controller
	loop       *boundLoop
	onError    func(error)
	onComplete func(ctx context.Context, e *Execution)
	populate   func(context.Context) context.Context
	used       atomic.Bool
}

// Loop pins the execution to a specific event loop instead of the
// controller's round-robin choice.
func (s *Starter) Loop(l EventLoop) *Starter {
	s.loop = s.ctrl.bind(l)
	return s
}

// OnError sets the handler for uncaught errors. The handler is always
// wrapped by the saturation guard; the default logs the full cause and
// continues.
func (s *Starter) OnError(fn func(error)) *Starter {
	s.onError = fn
	return s
}

// OnComplete sets the handler invoked exactly once when the execution's
// queue drains with no asynchronous work outstanding. The context it
// receives identifies the (now idle) loop, so starting a follow-up
// execution from the handler binds synchronously.
func (s *Starter) OnComplete(fn func(ctx context.Context, e *Execution)) *Starter {
	s.onComplete = fn
	return s
}

// Register sets the context populator: it runs once, before the user
// action, to seed execution-scoped values into the context every later
// continuation receives.
func (s *Starter) Register(fn func(context.Context) context.Context) *Starter {
	s.populate = fn
	return s
}

// Start launches the execution. If ctx shows the caller is already on
// the idle target loop, the execution is created synchronously;
// otherwise creation is scheduled onto the loop. Start on a used
// Starter returns ErrStarterUsed and launches nothing.
func (s *Starter) Start(ctx context.Context, action func(context.Context) error) error {
	if !s.used.CompareAndSwap(false, true) {
		return ErrStarterUsed
	}
	if s.ctrl.closed.Load() {
		return ErrControllerClosed
	}

	onError := s.onError
	if onError == nil {
		logger := s.ctrl.logger
		onError = func(err error) {
			logger.Error("uncaught execution error", slog.String("error", err.Error()))
		}
	}
	guard := &errorGuard{handler: onError, logger: s.ctrl.logger}

	create := func() {
		e := newExecution(s.ctrl, s.loop, guard, s.onComplete)
		e.begin(s.populate, action)
	}

	if bl, ok := loopFromContext(ctx); ok && bl == s.loop {
		if _, bound := executionFromContext(ctx); !bound && s.loop.current.Load() == nil {
			create()
			return nil
		}
	}

	s.loop.Submit(create)
	return nil
}
