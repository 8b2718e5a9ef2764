package loop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Group manages a fixed set of event loops and selects a default loop
// for new executions round-robin.
type Group struct {
	loops  []*Loop
	next   atomic.Uint32
	logger *slog.Logger
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithLogger sets the structured logger for the group and its loops.
func WithLogger(l *slog.Logger) GroupOption {
	return func(g *Group) { g.logger = l }
}

// NewGroup creates a group of n event loops and starts their goroutines.
// n must be at least 1.
func NewGroup(n int, opts ...GroupOption) *Group {
	if n < 1 {
		n = 1
	}

	g := &Group{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}

	g.loops = make([]*Loop, n)
	for i := range n {
		g.loops[i] = newLoop(g.logger)
	}

	g.logger.Debug("event loop group started", slog.Int("loops", n))
	return g
}

// Loops returns the group's loops.
func (g *Group) Loops() []*Loop { return g.loops }

// Next returns the next loop in round-robin order.
func (g *Group) Next() *Loop {
	n := g.next.Add(1)
	return g.loops[int(n-1)%len(g.loops)]
}

// Shutdown stops all loops and waits for their queues to drain. Each
// loop finishes tasks already queued; new submissions are dropped. If
// ctx expires first, the error from the slowest loop is returned.
func (g *Group) Shutdown(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, l := range g.loops {
		eg.Go(func() error { return l.shutdown(ctx) })
	}

	if err := eg.Wait(); err != nil {
		g.logger.Warn("event loop group shutdown timed out", slog.String("error", err.Error()))
		return err
	}

	g.logger.Debug("event loop group stopped")
	return nil
}
