package sync

import (
	"context"

	"github.com/wesm/zenhub-mirror/internal/api"
)

// RetryOnRateLimit runs fn up to three times. Only rate-limit failures are
// retried, after the syncer cooldown; any other error is returned at once.
// When every attempt is rate limited the last failure is returned.
func (s *Syncer) RetryOnRateLimit(ctx context.Context, label string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if lastErr != nil {
				s.log.Info("succeeded after previously hitting rate limit", "op", label, "attempt", attempt)
			}
			return nil
		}
		if !api.IsRateLimit(err) {
			return err
		}
		lastErr = err
		if attempt == retryAttempts {
			break
		}
		s.log.Error("rate limit hit, waiting and retrying", "op", label, "attempt", attempt, "wait", s.cooldown)
		if err := sleep(ctx, s.cooldown); err != nil {
			return err
		}
	}
	return lastErr
}
