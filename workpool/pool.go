// Package workpool provides the blocking-pool collaborator: a fixed set
// of worker goroutines that run offloaded blocking operations so event
// loops never stall. Concurrency and submission rate are policy knobs of
// this package, not of the execution core.
package workpool

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// Pool runs submitted operations on a fixed set of worker goroutines.
// The intake queue is unbounded: Submit never blocks, so event loops can
// hand work over regardless of how far behind the workers are.
type Pool struct {
	limiter *rate.Limiter
	logger  *slog.Logger
	workers int

	mu     sync.Mutex
	queue  []func()
	closed bool

	// wake has capacity 1: a send is a hint that the queue is non-empty.
	wake  chan struct{}
	quit  chan struct{}
	tasks chan func()
	wg    sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(p *Pool) { p.workers = n }
}

// WithRateLimit caps the rate at which workers start tasks. A zero
// limit (the default) means unlimited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(p *Pool) { p.limiter = rate.NewLimiter(limit, burst) }
}

// WithLogger sets the structured logger for the pool.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New creates a pool and starts its workers.
func New(opts ...Option) *Pool {
	p := &Pool{
		workers: 10,
		logger:  slog.Default(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		tasks:   make(chan func()),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.dispatch()
	for range p.workers {
		p.wg.Add(1)
		go p.work()
	}

	p.logger.Debug("blocking pool started", slog.Int("workers", p.workers))
	return p
}

// Submit hands fn to the pool. It never blocks; the intake queue grows
// as needed. Submissions after shutdown are dropped with a diagnostic.
func (p *Pool) Submit(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("operation submitted after pool shutdown dropped")
		return
	}
	p.queue = append(p.queue, fn)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// dispatch moves queued tasks to the workers. Only the handoff to a
// worker blocks here, never the intake side.
func (p *Pool) dispatch() {
	defer func() {
		close(p.tasks)
		p.wg.Done()
	}()

	for {
		if fn, ok := p.pop(); ok {
			p.tasks <- fn
			continue
		}

		select {
		case <-p.wake:
		case <-p.quit:
			// Hand over what is already queued, then stop.
			for {
				fn, ok := p.pop()
				if !ok {
					return
				}
				p.tasks <- fn
			}
		}
	}
}

func (p *Pool) pop() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	fn := p.queue[0]
	p.queue = p.queue[1:]
	return fn, true
}

func (p *Pool) work() {
	defer p.wg.Done()

	for fn := range p.tasks {
		p.invoke(fn)
	}
}

// invoke runs one task, honoring the rate limiter and containing panics
// so a broken operation cannot take a worker down.
func (p *Pool) invoke(fn func()) {
	if p.limiter != nil {
		if err := p.limiter.Wait(context.Background()); err != nil {
			p.logger.Error("rate limiter wait failed", slog.String("error", err.Error()))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("blocking pool task panicked", slog.Any("panic", r))
		}
	}()
	fn()
}

// Shutdown stops accepting work, lets workers finish what is queued, and
// waits for them to exit or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("blocking pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("blocking pool shutdown timed out")
		return ctx.Err()
	}
}
