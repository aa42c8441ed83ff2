// Package preferences exposes watchlist and alert-preference operations on top of a repository.Store.
package preferences

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/Proton-105/stockgenie-bot/internal/domain"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/internal/repository"
)

const defaultQueryTimeout = 5 * time.Second

// Service bounds every store call with a deadline and logs infrastructure failures.
// Domain sentinels (already tracked, not tracked, not found) pass through untouched.
type Service struct {
	store   repository.Store
	timeout time.Duration
	log     *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(store repository.Store, timeout time.Duration, log *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{store: store, timeout: timeout, log: log}
}

// Watchlist returns the user's tickers in insertion order.
func (s *Service) Watchlist(ctx context.Context, userID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tickers, err := s.store.ListTickers(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "watchlist", userID, err)
	}

	return tickers, nil
}

// Track adds ticker to the user's watchlist.
func (s *Service) Track(ctx context.Context, userID int64, ticker string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.AddTicker(ctx, userID, ticker); err != nil {
		return s.fail(ctx, "track", userID, err)
	}

	return nil
}

// Untrack removes ticker from the user's watchlist.
func (s *Service) Untrack(ctx context.Context, userID int64, ticker string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.RemoveTicker(ctx, userID, ticker); err != nil {
		return s.fail(ctx, "untrack", userID, err)
	}

	return nil
}

func (s *Service) Preferences(ctx context.Context, userID int64) (*domain.AlertPreference, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pref, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "preferences", userID, err)
	}

	return pref, nil
}

func (s *Service) SetDaily(ctx context.Context, userID int64, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.SetDailyEnabled(ctx, userID, enabled); err != nil {
		return s.fail(ctx, "set_daily", userID, err)
	}

	return nil
}

func (s *Service) SetMarket(ctx context.Context, userID int64, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.SetMarketEnabled(ctx, userID, enabled); err != nil {
		return s.fail(ctx, "set_market", userID, err)
	}

	return nil
}

// DailyEnabledUsers returns every user with the daily digest switched on.
func (s *Service) DailyEnabledUsers(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.ListDailyEnabledUsers(ctx)
	if err != nil {
		return nil, s.fail(ctx, "daily_users", 0, err)
	}

	return users, nil
}

// TickersForUsers bulk-loads watchlists. Users without tickers are absent from the result.
func (s *Service) TickersForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	if len(userIDs) == 0 {
		return map[int64][]string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	grouped, err := s.store.ListTickersForUsers(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, s.fail(ctx, "tickers_for_users", 0, err)
	}

	return lo.PickBy(grouped, func(_ int64, tickers []string) bool {
		return len(tickers) > 0
	}), nil
}

// MarketEnabledUsers returns users whose persisted market flag is on.
func (s *Service) MarketEnabledUsers(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.ListMarketEnabledUsers(ctx)
	if err != nil {
		return nil, s.fail(ctx, "market_users", 0, err)
	}

	return users, nil
}

func (s *Service) fail(ctx context.Context, operation string, userID int64, err error) error {
	if apperrors.IsUserError(err) {
		return err
	}

	attrs := []any{
		slog.String("operation", operation),
		slog.Any("error", err),
	}
	if userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	if ctx.Err() != nil {
		attrs = append(attrs, slog.Duration("timeout", s.timeout))
	}

	s.log.Error("preference store operation failed", attrs...)

	return apperrors.NewDatabaseError(err)
}
