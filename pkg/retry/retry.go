// Package retry wraps cenkalti/backoff for the fixed-interval, bounded
// retries used at startup.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts uint64
	Interval    time.Duration
}

func ConstantPolicy(maxAttempts int, interval time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		MaxAttempts: uint64(maxAttempts),
		Interval:    interval,
	}
}

// Constant retries fn every policy.Interval until it succeeds, the attempt
// ceiling is hit, or ctx is cancelled. fn's last error is returned.
func Constant(ctx context.Context, policy Policy, fn func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), policy.MaxAttempts-1),
		ctx,
	)
	return backoff.Retry(fn, b)
}
