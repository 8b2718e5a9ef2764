package ratpack_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	ratpack "github.com/Kilo-411/ratpack"
)

func TestPromise_SuccessDelivery(t *testing.T) {
	c, _ := newTestController(t)

	got := make(chan int, 1)
	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			go f.Success(42)
			return nil
		})
		return p.Then(ctx, func(ctx context.Context, v int) error {
			if _, err := ratpack.Current(ctx); err != nil {
				t.Errorf("Then continuation off-execution: %v", err)
			}
			got <- v
			return nil
		})
	})

	waitSignal(t, done, "completion")
	if v := <-got; v != 42 {
		t.Fatalf("delivered value = %d, want 42", v)
	}
}

func TestPromise_ErrorRoutesToOnError(t *testing.T) {
	c, _ := newTestController(t)

	boom := errors.New("boom")
	var mu sync.Mutex
	var handled error
	thenRan := false

	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			go f.Error(boom)
			return nil
		})
		return p.
			OnError(func(_ context.Context, err error) error {
				mu.Lock()
				handled = err
				mu.Unlock()
				return nil
			}).
			Then(ctx, func(context.Context, int) error {
				mu.Lock()
				thenRan = true
				mu.Unlock()
				return nil
			})
	})

	waitSignal(t, done, "completion")
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(handled, boom) {
		t.Fatalf("OnError got %v, want %v", handled, boom)
	}
	if thenRan {
		t.Fatal("then-path ran for a failed promise")
	}
}

func TestPromise_ErrorReachesExecutionHandler(t *testing.T) {
	c, _ := newTestController(t)

	boom := errors.New("boom")
	got := make(chan error, 1)
	err := c.Exec().
		OnError(func(err error) { got <- err }).
		Start(context.Background(), func(ctx context.Context) error {
			p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
				go f.Error(boom)
				return nil
			})
			return p.Then(ctx, func(context.Context, int) error { return nil })
		})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := <-got; !errors.Is(err, boom) {
		t.Fatalf("execution error handler got %v, want %v", err, boom)
	}
}

func TestPromise_FulfillErrorIsImplicitFailure(t *testing.T) {
	c, _ := newTestController(t)

	boom := errors.New("fulfill failed")
	got := make(chan error, 1)
	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(*ratpack.Fulfiller[int]) error {
			return boom
		})
		return p.
			OnError(func(_ context.Context, err error) error {
				got <- err
				return nil
			}).
			Then(ctx, func(context.Context, int) error { return nil })
	})

	waitSignal(t, done, "completion")
	if err := <-got; !errors.Is(err, boom) {
		t.Fatalf("implicit failure = %v, want %v", err, boom)
	}
}

func TestPromise_FulfillPanicIsImplicitFailure(t *testing.T) {
	c, _ := newTestController(t)

	got := make(chan error, 1)
	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(*ratpack.Fulfiller[int]) error {
			panic("fulfill blew up")
		})
		return p.
			OnError(func(_ context.Context, err error) error {
				got <- err
				return nil
			}).
			Then(ctx, func(context.Context, int) error { return nil })
	})

	waitSignal(t, done, "completion")
	if err := <-got; err == nil {
		t.Fatal("expected implicit failure from panicking fulfill action")
	}
}

func TestFulfiller_ConcurrentTerminalCalls(t *testing.T) {
	c, h := newTestController(t)

	const callers = 8
	deliveries := make(chan int, callers)
	var wg sync.WaitGroup

	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			startLine := make(chan struct{})
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-startLine
					f.Success(i)
				}(i)
			}
			close(startLine)
			return nil
		})
		return p.Then(ctx, func(_ context.Context, v int) error {
			deliveries <- v
			return nil
		})
	})

	waitSignal(t, done, "completion")
	wg.Wait()

	if n := len(deliveries); n != 1 {
		t.Fatalf("deliveries = %d, want exactly 1", n)
	}
	if n := h.count("promise already fulfilled"); n != callers-1 {
		t.Fatalf("overlap diagnostics = %d, want %d", n, callers-1)
	}
}

func TestFulfiller_SuccessThenError(t *testing.T) {
	c, h := newTestController(t)

	var mu sync.Mutex
	var values []int
	var failures []error

	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			f.Success(1)
			f.Error(errors.New("too late"))
			return nil
		})
		return p.
			OnError(func(_ context.Context, err error) error {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}).
			Then(ctx, func(_ context.Context, v int) error {
				mu.Lock()
				values = append(values, v)
				mu.Unlock()
				return nil
			})
	})

	waitSignal(t, done, "completion")
	mu.Lock()
	defer mu.Unlock()
	if len(values) != 1 || values[0] != 1 {
		t.Fatalf("values = %v, want [1]", values)
	}
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	if n := h.count("promise already fulfilled"); n != 1 {
		t.Fatalf("overlap diagnostics = %d, want 1", n)
	}
}

func TestPromise_Result(t *testing.T) {
	c, _ := newTestController(t)

	boom := errors.New("boom")
	got := make(chan ratpack.Result[int], 2)
	done := start(t, c, func(ctx context.Context) error {
		ok := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			f.Success(7)
			return nil
		})
		if err := ok.Result(ctx, func(_ context.Context, r ratpack.Result[int]) error {
			got <- r
			return nil
		}); err != nil {
			return err
		}

		bad := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			f.Error(boom)
			return nil
		})
		return bad.Result(ctx, func(_ context.Context, r ratpack.Result[int]) error {
			got <- r
			return nil
		})
	})

	waitSignal(t, done, "completion")
	first := <-got
	if !first.Success() || first.Value != 7 {
		t.Fatalf("first result = %+v, want success 7", first)
	}
	second := <-got
	if second.Success() || !errors.Is(second.Err, boom) {
		t.Fatalf("second result = %+v, want failure %v", second, boom)
	}
}

func TestPromise_Map(t *testing.T) {
	c, _ := newTestController(t)

	got := make(chan string, 1)
	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			go f.Success(21)
			return nil
		})
		mapped := ratpack.Map(p, func(v int) (string, error) {
			return strconv.Itoa(v * 2), nil
		})
		return mapped.Then(ctx, func(_ context.Context, s string) error {
			got <- s
			return nil
		})
	})

	waitSignal(t, done, "completion")
	if s := <-got; s != "42" {
		t.Fatalf("mapped value = %q, want \"42\"", s)
	}
}

func TestPromise_MapErrorBecomesFailure(t *testing.T) {
	c, _ := newTestController(t)

	boom := errors.New("transform failed")
	got := make(chan error, 1)
	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			f.Success(1)
			return nil
		})
		mapped := ratpack.Map(p, func(int) (string, error) { return "", boom })
		return mapped.
			OnError(func(_ context.Context, err error) error {
				got <- err
				return nil
			}).
			Then(ctx, func(context.Context, string) error { return nil })
	})

	waitSignal(t, done, "completion")
	if err := <-got; !errors.Is(err, boom) {
		t.Fatalf("mapped failure = %v, want %v", err, boom)
	}
}

func TestPromise_FlatMap(t *testing.T) {
	c, _ := newTestController(t)

	got := make(chan string, 1)
	done := start(t, c, func(ctx context.Context) error {
		p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
			go f.Success(6)
			return nil
		})
		chained := ratpack.FlatMap(p, func(v int) *ratpack.Promise[string] {
			return ratpack.NewPromise(func(f *ratpack.Fulfiller[string]) error {
				go f.Success(strconv.Itoa(v * 7))
				return nil
			})
		})
		return chained.Then(ctx, func(_ context.Context, s string) error {
			got <- s
			return nil
		})
	})

	waitSignal(t, done, "completion")
	if s := <-got; s != "42" {
		t.Fatalf("flat-mapped value = %q, want \"42\"", s)
	}
}

func TestPromise_ThenOffExecution(t *testing.T) {
	p := ratpack.NewPromise(func(f *ratpack.Fulfiller[int]) error {
		f.Success(1)
		return nil
	})
	err := p.Then(context.Background(), func(context.Context, int) error { return nil })
	if !errors.Is(err, ratpack.ErrUnmanagedGoroutine) {
		t.Fatalf("Then off-execution error = %v, want ErrUnmanagedGoroutine", err)
	}
}
