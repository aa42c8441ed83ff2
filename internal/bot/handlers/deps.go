package handlers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/stockgenie-bot/internal/domain"
)

// Watchlists is the preference service surface the handlers need.
type Watchlists interface {
	Watchlist(ctx context.Context, userID int64) ([]string, error)
	Track(ctx context.Context, userID int64, ticker string) error
	Untrack(ctx context.Context, userID int64, ticker string) error
	Preferences(ctx context.Context, userID int64) (*domain.AlertPreference, error)
	SetDaily(ctx context.Context, userID int64, enabled bool) error
}

// Prices resolves tickers to prices; ok=false means unavailable.
type Prices interface {
	Price(ctx context.Context, ticker string) (decimal.Decimal, bool)
}

// MarketAlerts arms and disarms recurring market-hour updates.
type MarketAlerts interface {
	Arm(ctx context.Context, userID int64, minutes int) error
	Disarm(ctx context.Context, userID int64) error
	Interval(userID int64) (int, bool)
}

// Calendar tells whether the market is trading.
type Calendar interface {
	IsOpen(t time.Time) bool
	Describe() string
}
