package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/alerts"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

const (
	mutedReply           = "🔕 All alerts muted. You will no longer receive daily or market hour stock updates."
	unmutedReply         = "🔔 Daily stock alerts have been re-enabled."
	noPreferencesReply   = "ℹ️ You have no alert preferences set."
	marketUsageReply     = "Please specify a time interval. Example: /marketalert 1hour or /marketalert 0 to cancel."
	marketCancelledReply = "🛑 Market alerts have been cancelled."
	invalidIntervalReply = "Invalid format. Use '1hour', '30min', or '0' to cancel."
	alreadyActiveReply   = "⏱️ You already have a Market Alert running. Use /marketalert 0 or /mute to disable."
)

// NewMuteHandler turns off the daily digest and any running market alert.
func NewMuteHandler(watchlists Watchlists, market MarketAlerts, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		ctx := RequestContext(c)

		if err := watchlists.SetDaily(ctx, userID, false); err != nil {
			return err
		}
		if err := market.Disarm(ctx, userID); err != nil {
			return err
		}

		log.Info("alerts muted", slog.Int64("user_id", userID))
		return c.Send(mutedReply)
	}
}

// NewUnmuteHandler re-enables only the daily digest; market alerts must be re-armed explicitly.
func NewUnmuteHandler(watchlists Watchlists, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		if err := watchlists.SetDaily(RequestContext(c), userID, true); err != nil {
			return err
		}

		log.Info("daily alerts unmuted", slog.Int64("user_id", userID))
		return c.Send(unmutedReply)
	}
}

func NewStatusHandler(watchlists Watchlists, market MarketAlerts) Handler {
	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		pref, err := watchlists.Preferences(RequestContext(c), userID)
		if errors.Is(err, apperrors.ErrPreferencesNotFound) {
			return c.Send(noPreferencesReply)
		}
		if err != nil {
			return err
		}

		var b strings.Builder
		b.WriteString("🔔 *Alert Status:*\n")
		b.WriteString("• Daily Alerts: " + onOff(pref.DailyEnabled) + "\n")
		b.WriteString("• Market Alerts: " + onOff(pref.MarketEnabled))
		if minutes, armed := market.Interval(userID); armed {
			b.WriteString(fmt.Sprintf(" (every %d minutes)", minutes))
		}

		return c.Send(b.String(), telebot.ModeMarkdown)
	}
}

// NewMarketAlertHandler arms, or with "0" cancels, recurring market-hour updates.
func NewMarketAlertHandler(market MarketAlerts, calendar Calendar, now func() time.Time, log *slog.Logger) Handler {
	if now == nil {
		now = time.Now
	}

	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		_, args, _ := ParseCommand(c.Text())
		if len(args) == 0 {
			return c.Send(marketUsageReply)
		}

		ctx := RequestContext(c)
		token := strings.ToLower(strings.TrimSpace(args[0]))

		if token == alerts.CancelToken {
			if err := market.Disarm(ctx, userID); err != nil {
				return err
			}
			return c.Send(marketCancelledReply)
		}

		minutes, err := alerts.ParseInterval(token)
		if err != nil {
			return c.Send(invalidIntervalReply)
		}

		if _, armed := market.Interval(userID); armed {
			return c.Send(alreadyActiveReply)
		}

		if !calendar.IsOpen(now()) {
			warning := fmt.Sprintf("⚠️ Heads up! The market is currently closed. "+
				"Alerts will only be sent during market hours (%s).", calendar.Describe())
			if err := c.Send(warning); err != nil {
				return err
			}
		}

		switch err := market.Arm(ctx, userID, minutes); {
		case errors.Is(err, apperrors.ErrAlreadyActive):
			return c.Send(alreadyActiveReply)
		case err != nil:
			return err
		}

		log.Info("market alert set", slog.Int64("user_id", userID), slog.Int("interval_minutes", minutes))
		return c.Send(fmt.Sprintf("✅ Market alerts set every %d minutes during market hours (%s).", minutes, calendar.Describe()))
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "✅ On"
	}
	return "❌ Off"
}
