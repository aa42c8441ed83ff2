// Package middleware holds telebot and router middlewares shared by the bot.
package middleware

import (
	"context"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/ratelimit"
)

// RateLimitedReply is sent instead of running the handler when a user exceeds their budget.
const RateLimitedReply = "⏳ Too many requests. Please slow down."

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle is a telebot middleware. Limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		limit, window, err := m.rules.PerUser()
		if err != nil {
			return next(c)
		}

		result, err := m.limiter.Check(context.Background(), "user:"+strconv.FormatInt(sender.ID, 10), limit, window)
		if err != nil {
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", sender.ID), slog.Time("reset_at", result.ResetAt))
			return c.Send(RateLimitedReply)
		}

		return next(c)
	}
}
