package ratpack

import (
	"runtime"
	"time"
)

// Config holds configuration for the Controller.
type Config struct {
	// Loops is the number of event loops. Each execution is pinned to
	// one loop for its whole life.
	Loops int

	// BlockingWorkers is the number of goroutines in the default
	// blocking pool.
	BlockingWorkers int

	// ShutdownTimeout bounds Close when the caller's context carries no
	// deadline of its own.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Loops:           n,
		BlockingWorkers: n * 10,
		ShutdownTimeout: 30 * time.Second,
	}
}
