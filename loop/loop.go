// Package loop provides the event-loop collaborator for the execution
// core: a fixed Group of serial run queues, each drained by a single
// goroutine. Executions are pinned to one loop for their whole life; the
// loop's serial drain is what turns that pin into a mutual-exclusion
// guarantee.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Kilo-411/ratpack/id"
)

// Loop is a serial run queue drained by one dedicated goroutine.
// Tasks run strictly in submission order. The queue is unbounded so a
// task may safely submit follow-up work to its own loop without risk of
// deadlock.
type Loop struct {
	id     id.LoopID
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()

	// wake has capacity 1: a send is a hint that the queue is non-empty.
	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	stopOnce sync.Once
}

func newLoop(logger *slog.Logger) *Loop {
	l := &Loop{
		id:     id.NewLoopID(),
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// ID returns the loop's unique identifier.
func (l *Loop) ID() id.LoopID { return l.id }

// Submit schedules fn to run on the loop goroutine. It never blocks.
// Tasks submitted after shutdown are dropped with a diagnostic.
func (l *Loop) Submit(fn func()) {
	select {
	case <-l.stop:
		l.logger.Warn("task submitted after loop shutdown dropped",
			slog.String("loop_id", l.id.String()),
		)
		return
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// run drains the queue until stopped. On shutdown, tasks already queued
// are run to completion before the goroutine exits.
func (l *Loop) run() {
	defer close(l.done)

	for {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.invoke(fn)
		}

		select {
		case <-l.wake:
		case <-l.stop:
			l.drainRemaining()
			return
		}
	}
}

func (l *Loop) drainRemaining() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.invoke(fn)
	}
}

// invoke runs a single task, containing panics so one broken task cannot
// kill the loop goroutine shared by many executions.
func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked",
				slog.String("loop_id", l.id.String()),
				slog.Any("panic", r),
			)
		}
	}()
	fn()
}

// shutdown signals the loop to stop and waits for the drain to finish or
// the context to expire.
func (l *Loop) shutdown(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stop) })

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("loop %s shutdown: %w", l.id.String(), ctx.Err())
	}
}
