package retry

import (
	"context"
	"log"
	"time"

	"github.com/voicemint/api/internal/apperr"
)

// Config bounds a retried operation. Zero values fall back to the defaults
// used around provider calls: 3 attempts starting at a 1s delay.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	return c
}

// Do runs op up to cfg.MaxAttempts times, sleeping InitialDelay * 2^attempt
// between failures. The last error is propagated unchanged; classification
// happens upstream of this layer, so Do only consults apperr.Retryable to
// decide whether another attempt makes sense.
func Do[T any](ctx context.Context, cfg Config, name string, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperr.Retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.InitialDelay << uint(attempt)
		log.Printf("[Retry] %s attempt %d/%d failed, retrying in %v: %v", name, attempt+1, cfg.MaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
