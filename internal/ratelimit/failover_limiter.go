package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/stockgenie-bot/pkg/metrics"
)

// FailoverLimiter checks the primary backend and falls back to a stricter limiter when it errors.
type FailoverLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*FailoverLimiter)(nil)

func NewFailoverLimiter(primary, fallback Limiter, log *slog.Logger) *FailoverLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &FailoverLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (f *FailoverLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := f.primary.Check(ctx, key, limit, window)
	if err == nil {
		metrics.RecordRateLimitCheck(metrics.BackendPrimary, result.Allowed)
		return result, nil
	}

	f.log.Warn("primary rate limiter failed, using fallback", slog.String("key", key), slog.Any("error", err))

	// halve the budget while the shared view is unavailable
	fallbackLimit := max(limit/2, 1)

	result, err = f.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil {
		return nil, err
	}

	metrics.RecordRateLimitCheck(metrics.BackendFallback, result.Allowed)
	return result, nil
}
