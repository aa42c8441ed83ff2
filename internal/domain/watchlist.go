package domain

import "time"

// WatchlistEntry is a single ticker tracked by a user.
type WatchlistEntry struct {
	UserID    int64     `json:"user_id"`
	Ticker    string    `json:"ticker"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertPreference holds a user's alert switches. There is at most one per user.
type AlertPreference struct {
	UserID        int64     `json:"user_id"`
	DailyEnabled  bool      `json:"daily_enabled"`
	MarketEnabled bool      `json:"market_enabled"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Defaults applied when a preference row is created implicitly.
const (
	DefaultDailyEnabled  = true
	DefaultMarketEnabled = false
)

// NewAlertPreference returns a preference row populated with the defaults.
func NewAlertPreference(userID int64) *AlertPreference {
	return &AlertPreference{
		UserID:        userID,
		DailyEnabled:  DefaultDailyEnabled,
		MarketEnabled: DefaultMarketEnabled,
		UpdatedAt:     time.Now().UTC(),
	}
}
