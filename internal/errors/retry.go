package errors

import (
	"context"
	"math"
	"time"
)

// RetryPolicy bounds WithRetry. Attempts counts retries after the first call.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

var DefaultRetryPolicy = RetryPolicy{
	Attempts:       3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	Multiplier:     2.0,
}

// WithRetry calls fn until it succeeds, returns an error retryable rejects, or the policy is exhausted.
func WithRetry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func() error) error {
	if fn == nil {
		return nil
	}

	var err error
	for attempt := 0; attempt <= policy.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) || attempt == policy.Attempts {
			return err
		}

		timer := time.NewTimer(policy.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := time.Duration(float64(p.InitialBackoff) * math.Pow(multiplier, float64(attempt)))
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		return p.MaxBackoff
	}
	return backoff
}
