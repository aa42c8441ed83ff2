// Package alerts runs the scheduled notifications: per-user market-hour updates and the daily digest.
package alerts

import (
	"context"

	"github.com/shopspring/decimal"
)

// Message is a single outbound chat message.
type Message struct {
	Text     string
	Markdown bool
}

// Sender delivers a message to a user's chat.
type Sender interface {
	Send(ctx context.Context, userID int64, msg Message) error
}

// PriceLookup resolves a ticker to its latest price; ok=false means unavailable.
type PriceLookup interface {
	Price(ctx context.Context, ticker string) (decimal.Decimal, bool)
}

// Preferences is the slice of the preference service the schedulers rely on.
type Preferences interface {
	Watchlist(ctx context.Context, userID int64) ([]string, error)
	SetMarket(ctx context.Context, userID int64, enabled bool) error
	MarketEnabledUsers(ctx context.Context) ([]int64, error)
	DailyEnabledUsers(ctx context.Context) ([]int64, error)
	TickersForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error)
}
