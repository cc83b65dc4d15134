package commons

import (
	"context"
	"errors"
	"time"

	"github.com/storelane/ledger-engine/internal/domain"
)

const DefaultRetryAttempts = 3
const DefaultRetryBaseDelay = 25 * time.Millisecond

// Retry runs fn up to attempts times, retrying only on ErrConcurrencyConflict
// with doubling backoff. Any other error, and exhaustion, surface as-is.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := baseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
	}

	return err
}
