// Package repository implements persistence for watchlists and alert preferences.
package repository

import (
	"context"

	"github.com/Proton-105/stockgenie-bot/internal/domain"
)

// Store is the persistence contract for watchlist entries and alert preferences.
// Every method is a single round trip to the backing datastore; nothing is cached.
type Store interface {
	// ListTickers returns the user's tickers in insertion order.
	ListTickers(ctx context.Context, userID int64) ([]string, error)
	// AddTicker inserts the pair and creates a default preference row if the user has none.
	// It returns errors.ErrAlreadyTracked when the pair already exists.
	AddTicker(ctx context.Context, userID int64, ticker string) error
	// RemoveTicker deletes the pair, returning errors.ErrNotTracked when nothing was deleted.
	RemoveTicker(ctx context.Context, userID int64, ticker string) error
	// GetPreferences returns errors.ErrPreferencesNotFound when the user has no row.
	GetPreferences(ctx context.Context, userID int64) (*domain.AlertPreference, error)
	// SetDailyEnabled creates or updates the user's daily flag.
	SetDailyEnabled(ctx context.Context, userID int64, enabled bool) error
	// SetMarketEnabled creates or updates the user's market alert flag.
	SetMarketEnabled(ctx context.Context, userID int64, enabled bool) error
	ListDailyEnabledUsers(ctx context.Context) ([]int64, error)
	ListMarketEnabledUsers(ctx context.Context) ([]int64, error)
	// ListTickersForUsers returns tickers grouped per user; users without tickers are absent from the map.
	ListTickersForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error)
	Close() error
}
