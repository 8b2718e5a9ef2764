package ratpack

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Kilo-411/ratpack/id"
	"github.com/Kilo-411/ratpack/interceptor"
)

// Option configures a Controller.
type Option func(*Controller) error

// WithLogger sets the structured logger used for all diagnostics:
// uncaught errors, overlapping fulfillments, saturation, and protocol
// violations.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) error {
		c.logger = l
		return nil
	}
}

// WithLoops sets the number of event loops in the owned loop group.
// Ignored when WithEventLoops supplies custom loops.
func WithLoops(n int) Option {
	return func(c *Controller) error {
		if n < 1 {
			return fmt.Errorf("ratpack: loops must be at least 1, got %d", n)
		}
		c.config.Loops = n
		return nil
	}
}

// WithBlockingWorkers sets the worker count of the owned blocking pool.
// Ignored when WithBlockingPool supplies a custom pool.
func WithBlockingWorkers(n int) Option {
	return func(c *Controller) error {
		if n < 1 {
			return fmt.Errorf("ratpack: blocking workers must be at least 1, got %d", n)
		}
		c.config.BlockingWorkers = n
		return nil
	}
}

// WithEventLoops supplies the event loops executions are pinned to
// instead of an owned loop group. Each loop must run submitted tasks
// serially on a single goroutine; the caller keeps ownership of their
// lifecycle.
func WithEventLoops(loops ...EventLoop) Option {
	return func(c *Controller) error {
		if len(loops) == 0 {
			return fmt.Errorf("ratpack: at least one event loop required")
		}
		for _, l := range loops {
			bl := &boundLoop{EventLoop: l, id: id.NewLoopID()}
			c.loops = append(c.loops, bl)
			c.binds[l] = bl
		}
		return nil
	}
}

// WithBlockingPool supplies the pool blocking operations are offloaded
// to instead of an owned workpool. The caller keeps ownership of its
// lifecycle.
func WithBlockingPool(p BlockingPool) Option {
	return func(c *Controller) error {
		c.pool = p
		return nil
	}
}

// WithInterceptors seeds every new execution's interceptor chain. The
// interceptors wrap all of the execution's continuations and offloaded
// operations, in the given order, outermost first, ahead of anything
// added later via AddInterceptor.
func WithInterceptors(ics ...interceptor.Interceptor) Option {
	return func(c *Controller) error {
		c.interceptors = append(c.interceptors, ics...)
		return nil
	}
}

// WithShutdownTimeout bounds Close when the caller's context has no
// deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) error {
		c.config.ShutdownTimeout = d
		return nil
	}
}
