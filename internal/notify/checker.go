package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunPeriodic calls refresh every interval until ctx is done, so alerts follow
// the calendar even when nobody edits the fridge. A non-positive interval
// returns immediately.
func RunPeriodic(ctx context.Context, interval time.Duration, refresh func(context.Context) error, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}

	logger = logger.With().Str("component", "expiry-checker").Logger()
	logger.Info().Dur("interval", interval).Msg("expiry checker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("expiry checker stopped")
			return
		case <-ticker.C:
			if err := refresh(ctx); err != nil {
				logger.Error().Err(err).Msg("expiry check failed")
			}
		}
	}
}
