package interceptor

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns an interceptor that logs each wrapped unit at debug
// level with its kind and duration. Failures are logged at error level.
func Logging(logger *slog.Logger) Interceptor {
	return func(ctx context.Context, kind Kind, next Unit) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("execution segment failed",
				slog.String("execution_id", ExecutionIDFromContext(ctx)),
				slog.String("kind", kind.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("execution segment completed",
				slog.String("execution_id", ExecutionIDFromContext(ctx)),
				slog.String("kind", kind.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
