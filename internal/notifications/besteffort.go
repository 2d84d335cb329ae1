package notifications

import (
	"context"
	"log/slog"

	"airlift/internal/logging"
)

// BestEffort runs a notification call whose failure must never reach the
// caller. The error is logged at warn level and swallowed; the suppression is
// the contract, not an accident.
func BestEffort(ctx context.Context, logger *slog.Logger, operation string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		if logger == nil {
			logger = logging.NewNop()
		}
		logger.Warn("notification delivery failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
	}
}
