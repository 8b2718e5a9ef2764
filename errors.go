package ratpack

import "errors"

var (
	// Protocol violations.
	ErrUnmanagedGoroutine     = errors.New("ratpack: not running on a managed execution")
	ErrExecutionBound         = errors.New("ratpack: an execution is already bound to this event loop")
	ErrOverlappingFulfillment = errors.New("ratpack: promise already fulfilled")
	ErrHandlerSaturated       = errors.New("ratpack: error handler saturated")

	// Lifecycle errors.
	ErrStarterUsed      = errors.New("ratpack: starter already used")
	ErrControllerClosed = errors.New("ratpack: controller closed")
)
