package ratpack_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	ratpack "github.com/Kilo-411/ratpack"
)

// recordingHandler is a slog.Handler that retains every record so tests
// can count diagnostics by message.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

// count returns how many records contain substr in their message.
func (h *recordingHandler) count(substr string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if strings.Contains(r.Message, substr) {
			n++
		}
	}
	return n
}

// newTestController builds a single-loop controller with a recording
// logger and registers cleanup.
func newTestController(t *testing.T, opts ...ratpack.Option) (*ratpack.Controller, *recordingHandler) {
	t.Helper()

	h := &recordingHandler{}
	all := append([]ratpack.Option{
		ratpack.WithLogger(slog.New(h)),
		ratpack.WithLoops(1),
		ratpack.WithBlockingWorkers(4),
	}, opts...)

	c, err := ratpack.New(all...)
	if err != nil {
		t.Fatalf("ratpack.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Close(ctx); err != nil {
			t.Errorf("controller close: %v", err)
		}
	})
	return c, h
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// start launches an execution with a completion signal and fails the
// test on starter misuse.
func start(t *testing.T, c *ratpack.Controller, action func(ctx context.Context) error) <-chan struct{} {
	t.Helper()

	done := make(chan struct{})
	err := c.Exec().
		OnComplete(func(context.Context, *ratpack.Execution) { close(done) }).
		Start(context.Background(), action)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return done
}
