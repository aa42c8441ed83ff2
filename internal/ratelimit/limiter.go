// Package ratelimit throttles incoming updates per user with a sliding window.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts a hit against key and reports whether it fits in limit per window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded accompanies a Result with Allowed=false from limiters that signal rejection as an error.
var ErrLimitExceeded = errors.New("rate limit exceeded")
