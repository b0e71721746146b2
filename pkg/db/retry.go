package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const retryBaseDelay = 25 * time.Millisecond

// RetryTransient runs op up to attempts times while it fails with a transient
// database error. Any other failure is returned immediately, as is a done ctx.
func RetryTransient(ctx context.Context, attempts int, op func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(retryBaseDelay))
	return retry.Do(ctx, backoff, func(context.Context) error {
		err := op()
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
