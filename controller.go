package ratpack

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Kilo-411/ratpack/id"
	"github.com/Kilo-411/ratpack/interceptor"
	"github.com/Kilo-411/ratpack/loop"
	"github.com/Kilo-411/ratpack/workpool"
)

// EventLoop is the worker collaborator executions are pinned to. It must
// run submitted tasks serially, in submission order, on a single
// goroutine. The loop package provides the default implementation.
type EventLoop interface {
	Submit(fn func())
}

// BlockingPool is the collaborator that runs offloaded blocking
// operations. The workpool package provides the default implementation.
type BlockingPool interface {
	Submit(fn func())
}

// Controller owns the set of event loops and the blocking pool, and
// launches executions onto them. Create one with New().
type Controller struct {
	config       Config
	logger       *slog.Logger
	interceptors []interceptor.Interceptor

	loops []*boundLoop
	next  atomic.Uint32

	pool BlockingPool

	// binds maps foreign event loops (passed to Starter.Loop) to their
	// wrapper, so the same loop always shares one current-execution slot.
	bindMu sync.Mutex
	binds  map[EventLoop]*boundLoop

	// Owned collaborators are shut down by Close. User-supplied loops
	// and pools stay under the caller's control.
	ownedGroup *loop.Group
	ownedPool  *workpool.Pool

	closed atomic.Bool
}

// boundLoop pairs an event loop with the tagged "current execution or
// none" slot that makes the single-runner invariant checkable at every
// re-entry point.
type boundLoop struct {
	EventLoop
	id      id.LoopID
	current atomic.Pointer[Execution]
}

// New creates a Controller with the given options. Unless custom
// collaborators are supplied, it starts an owned loop group and blocking
// pool sized by Config.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		config: DefaultConfig(),
		logger: slog.Default(),
		binds:  map[EventLoop]*boundLoop{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.loops == nil {
		c.ownedGroup = loop.NewGroup(c.config.Loops, loop.WithLogger(c.logger))
		for _, l := range c.ownedGroup.Loops() {
			c.loops = append(c.loops, &boundLoop{EventLoop: l, id: l.ID()})
		}
	}
	if c.pool == nil {
		c.ownedPool = workpool.New(
			workpool.WithWorkers(c.config.BlockingWorkers),
			workpool.WithLogger(c.logger),
		)
		c.pool = c.ownedPool
	}

	c.logger.Info("execution controller started",
		slog.Int("loops", len(c.loops)),
		slog.Int("blocking_workers", c.config.BlockingWorkers),
	)

	return c, nil
}

// Logger returns the controller's logger.
func (c *Controller) Logger() *slog.Logger { return c.logger }

// Config returns a copy of the controller's configuration.
func (c *Controller) Config() Config { return c.config }

// Loops returns the controller's event loops, usable as Starter targets.
func (c *Controller) Loops() []EventLoop {
	out := make([]EventLoop, len(c.loops))
	for i, bl := range c.loops {
		out[i] = bl
	}
	return out
}

// Exec returns a single-use Starter targeting the next loop in
// round-robin order.
func (c *Controller) Exec() *Starter {
	return &Starter{
		ctrl: c,
		loop: c.nextLoop(),
	}
}

func (c *Controller) nextLoop() *boundLoop {
	n := c.next.Add(1)
	return c.loops[int(n-1)%len(c.loops)]
}

// bind returns the boundLoop wrapper for l, creating one for loops the
// controller has not seen before. Wrapping is stable: one slot per loop.
func (c *Controller) bind(l EventLoop) *boundLoop {
	if bl, ok := l.(*boundLoop); ok {
		return bl
	}

	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	if bl, ok := c.binds[l]; ok {
		return bl
	}
	bl := &boundLoop{EventLoop: l, id: id.NewLoopID()}
	c.binds[l] = bl
	return bl
}

// Close shuts down the collaborators the controller owns. Executions
// still queued on the loops are drained first. If ctx has no deadline,
// Config.ShutdownTimeout applies.
func (c *Controller) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && c.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ShutdownTimeout)
		defer cancel()
	}

	c.logger.Info("execution controller stopping")

	var firstErr error
	if c.ownedGroup != nil {
		if err := c.ownedGroup.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if c.ownedPool != nil {
		if err := c.ownedPool.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
