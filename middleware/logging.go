package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs handler start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		logger.Debug("handler started",
			slog.String("handler_id", c.HandlerID),
			slog.String("surface", c.Surface),
			slog.String("user_id", c.UserID),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("handler failed",
				slog.String("handler_id", c.HandlerID),
				slog.String("surface", c.Surface),
				slog.String("user_id", c.UserID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("handler completed",
				slog.String("handler_id", c.HandlerID),
				slog.String("surface", c.Surface),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
