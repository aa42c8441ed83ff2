package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Proton-105/stockgenie-bot/pkg/config"
)

var errRuleDisabled = errors.New("rate limit rule is disabled")

// Rules exposes the configured per-user limit and whitelist.
type Rules struct {
	enabled   bool
	limit     int
	window    time.Duration
	whitelist []int64
}

// NewRules validates cfg. A disabled config yields Rules that never limit.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	rules := &Rules{enabled: cfg.Enabled, whitelist: cfg.Whitelist}
	if !cfg.Enabled {
		return rules, nil
	}

	limit, window, err := parseRule(cfg.PerUser)
	if err != nil {
		return nil, fmt.Errorf("per-user rate limit: %w", err)
	}

	rules.limit = limit
	rules.window = window
	return rules, nil
}

// IsWhitelisted returns true if userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	return lo.Contains(r.whitelist, userID)
}

// PerUser returns the per-user limit, or errRuleDisabled when limiting is off.
func (r *Rules) PerUser() (int, time.Duration, error) {
	if !r.enabled {
		return 0, 0, errRuleDisabled
	}
	return r.limit, r.window, nil
}

// Window returns the per-user window, zero when disabled.
func (r *Rules) Window() time.Duration {
	return r.window
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Limit <= 0 {
		return 0, 0, errors.New("limit must be positive")
	}
	if rule.Window == "" {
		return 0, 0, errors.New("window duration is not set")
	}

	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}

	return rule.Limit, window, nil
}
