package download

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/http"
)

// retryPolicy retries HTTP status errors and timeouts with exponential backoff.
type retryPolicy struct {
	maxTries int
	cooldown time.Duration
	exponent float64
}

func newRetryPolicy(settings config.Settings) retryPolicy {
	return retryPolicy{
		maxTries: max(settings.DownloadMaxTries, 1),
		cooldown: settings.DownloadRetryCooldown,
		exponent: settings.DownloadRetryExponent,
	}
}

// backoff returns the pause after the given number of failed tries,
// cooldown * exponent^tries.
func (p retryPolicy) backoff(tries int) time.Duration {
	return time.Duration(float64(p.cooldown) * math.Pow(p.exponent, float64(tries)))
}

// do calls fn until it succeeds, returns an error that is not worth
// retrying or maxTries calls have been made. It returns the number of
// retries made. onRetry, if set, is called before each pause.
func (p retryPolicy) do(
	ctx context.Context,
	onRetry func(retry int, wait time.Duration, err error),
	fn func(ctx context.Context) error,
) (int, error) {
	retries := 0

	for {
		err := fn(ctx)
		if err == nil {
			return retries, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return retries, ctxErr
		}

		if !http.IsRetryable(err) {
			return retries, err
		}

		if retries+1 >= p.maxTries {
			return retries, fmt.Errorf("giving up after %d tries: %w", retries+1, err)
		}

		wait := p.backoff(retries)
		retries++

		if onRetry != nil {
			onRetry(retries, wait, err)
		}

		if err := sleep(ctx, wait); err != nil {
			return retries, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
