package workpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/Kilo-411/ratpack/workpool"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := workpool.New(workpool.WithWorkers(4))
	defer shutdown(t, p)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		})
	}

	waitGroup(t, &wg)
	if got := ran.Load(); got != 50 {
		t.Errorf("expected 50 tasks run, got %d", got)
	}
}

func TestPool_ConcurrencyBounded(t *testing.T) {
	p := workpool.New(workpool.WithWorkers(2))
	defer shutdown(t, p)

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
		})
	}

	waitGroup(t, &wg)
	if got := peak.Load(); got > 2 {
		t.Errorf("concurrency exceeded worker count: peak %d", got)
	}
}

func TestPool_PanickingTaskDoesNotKillWorker(t *testing.T) {
	p := workpool.New(workpool.WithWorkers(1))
	defer shutdown(t, p)

	done := make(chan struct{})
	p.Submit(func() { panic("broken operation") })
	p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestPool_RateLimit(t *testing.T) {
	// 20 tasks/sec, burst 1: 5 tasks should take roughly 200ms.
	p := workpool.New(
		workpool.WithWorkers(4),
		workpool.WithRateLimit(rate.Limit(20), 1),
	)
	defer shutdown(t, p)

	var wg sync.WaitGroup
	start := time.Now()
	for range 5 {
		wg.Add(1)
		p.Submit(func() { wg.Done() })
	}

	waitGroup(t, &wg)
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("rate limit not applied: 5 tasks in %v", elapsed)
	}
}

func TestPool_SubmitNeverBlocks(t *testing.T) {
	p := workpool.New(workpool.WithWorkers(1))
	defer shutdown(t, p)

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() { defer wg.Done(); <-block })

	// With the lone worker parked, every further submission must still
	// return immediately.
	begin := time.Now()
	for range 100 {
		wg.Add(1)
		p.Submit(func() { wg.Done() })
	}
	if elapsed := time.Since(begin); elapsed > 100*time.Millisecond {
		t.Fatalf("Submit blocked behind a busy worker: 100 submissions took %v", elapsed)
	}

	close(block)
	waitGroup(t, &wg)
}

func TestPool_SubmitAfterShutdownDropped(t *testing.T) {
	p := workpool.New(workpool.WithWorkers(1))
	shutdown(t, p)

	ran := make(chan struct{})
	p.Submit(func() { close(ran) })

	select {
	case <-ran:
		t.Fatal("task ran after shutdown")
	case <-time.After(50 * time.Millisecond):
	}
}

func shutdown(t *testing.T, p *workpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
}
