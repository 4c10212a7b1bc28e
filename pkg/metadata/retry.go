package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// RetryConfig bounds the one-shot sensor queries run on configure: a
// fixed number of attempts, each with an exponentially widening
// timeout.
type RetryConfig struct {
	Attempts    int
	BaseTimeout time.Duration
	Factor      float64
}

// DefaultRetryConfig allows three attempts, widening from a 2s base.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, BaseTimeout: 2 * time.Second, Factor: 1.5}
}

// Retry calls op up to cfg.Attempts times. Each attempt's timeout is
// drawn from a jpillora/backoff sequence seeded at BaseTimeout and
// widened by Factor per step, so a flaky sensor query gets steadily more
// room to answer instead of failing the same way R times in a row. The
// first successful call wins; if ctx is cancelled mid-retry, Retry
// returns immediately rather than waiting out the remaining attempts.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	widen := &backoff.Backoff{
		Min:    cfg.BaseTimeout,
		Factor: cfg.Factor,
		Jitter: false,
	}

	var lastErr error
	for k := 0; k < cfg.Attempts; k++ {
		timeout := widen.Duration()
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return fmt.Errorf("retry: cancelled after attempt %d/%d: %w", k+1, cfg.Attempts, ctx.Err())
		}
	}
	return fmt.Errorf("retry: all %d attempts failed: %w", cfg.Attempts, lastErr)
}
