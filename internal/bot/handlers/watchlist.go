package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/alerts"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/internal/pricing"
)

const (
	emptyWatchlistReply = "📭 You're not tracking any stocks. Use /add <ticker> to get started."
	notTrackedReply     = "You're not tracking this stock."
	addUnavailableReply = "Couldn't fetch stock data. Check the ticker symbol."
)

func usage(command string) string {
	return fmt.Sprintf("Please provide a stock ticker. Example: /%s TSLA", command)
}

// NewAddHandler validates the ticker against the price provider before tracking it.
func NewAddHandler(watchlists Watchlists, prices Prices, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		_, args, _ := ParseCommand(c.Text())
		if len(args) == 0 {
			return c.Send(usage(CommandAdd))
		}

		ctx := RequestContext(c)
		ticker := normalizeTicker(args[0])

		price, ok := prices.Price(ctx, ticker)
		if !ok {
			return c.Send(addUnavailableReply)
		}

		err := watchlists.Track(ctx, userID, ticker)
		switch {
		case err == nil:
			log.Info("ticker tracked", slog.Int64("user_id", userID), slog.String("ticker", ticker))
			return c.Send(fmt.Sprintf("✅ Now tracking %s at %s", ticker, pricing.FormatPrice(price)))
		case errors.Is(err, apperrors.ErrAlreadyTracked):
			return c.Send(fmt.Sprintf("You're already tracking %s. Current price: %s", ticker, pricing.FormatPrice(price)))
		default:
			return err
		}
	}
}

func NewDeleteHandler(watchlists Watchlists, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		_, args, _ := ParseCommand(c.Text())
		if len(args) == 0 {
			return c.Send(usage(CommandDelete))
		}

		ticker := normalizeTicker(args[0])

		err := watchlists.Untrack(RequestContext(c), userID, ticker)
		switch {
		case err == nil:
			log.Info("ticker untracked", slog.Int64("user_id", userID), slog.String("ticker", ticker))
			return c.Send(fmt.Sprintf("🗑️ %s has been removed from your tracked stocks.", ticker))
		case errors.Is(err, apperrors.ErrNotTracked):
			return c.Send(notTrackedReply)
		default:
			return err
		}
	}
}

// NewListHandler shows the watchlist with current prices.
func NewListHandler(watchlists Watchlists, prices Prices) Handler {
	return func(c telebot.Context) error {
		userID, ok := chatID(c)
		if !ok {
			return nil
		}

		ctx := RequestContext(c)

		tickers, err := watchlists.Watchlist(ctx, userID)
		if err != nil {
			return err
		}
		if len(tickers) == 0 {
			return c.Send(emptyWatchlistReply)
		}

		lines := alerts.PriceLines(ctx, prices, tickers)
		return c.Send("📋 Your tracked stocks:\n" + strings.Join(lines, "\n"))
	}
}

func NewCheckHandler(prices Prices) Handler {
	return func(c telebot.Context) error {
		_, args, _ := ParseCommand(c.Text())
		if len(args) == 0 {
			return c.Send(usage(CommandCheck))
		}

		ticker := normalizeTicker(args[0])

		price, ok := prices.Price(RequestContext(c), ticker)
		if !ok {
			return c.Send(fmt.Sprintf("Couldn't fetch price for %s. Check the ticker symbol.", ticker))
		}

		return c.Send(fmt.Sprintf("🔎 Current price of %s is %s", ticker, pricing.FormatPrice(price)))
	}
}
