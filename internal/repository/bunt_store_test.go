package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

func newBuntStore(t *testing.T) *BuntStore {
	t.Helper()

	store, err := NewBuntStore(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestBuntStore_AddTickerKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	for _, ticker := range []string{"TSLA", "AAPL", "MSFT"} {
		require.NoError(t, store.AddTicker(ctx, 1, ticker))
	}

	tickers, err := store.ListTickers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "AAPL", "MSFT"}, tickers)
}

func TestBuntStore_AddTickerRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	require.NoError(t, store.AddTicker(ctx, 1, "AAPL"))
	assert.ErrorIs(t, store.AddTicker(ctx, 1, "AAPL"), apperrors.ErrAlreadyTracked)

	// other users are independent
	require.NoError(t, store.AddTicker(ctx, 2, "AAPL"))

	tickers, err := store.ListTickers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, tickers)
}

func TestBuntStore_AddTickerCreatesDefaultPreferences(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	_, err := store.GetPreferences(ctx, 5)
	assert.ErrorIs(t, err, apperrors.ErrPreferencesNotFound)

	require.NoError(t, store.AddTicker(ctx, 5, "NVDA"))

	pref, err := store.GetPreferences(ctx, 5)
	require.NoError(t, err)
	assert.True(t, pref.DailyEnabled)
	assert.False(t, pref.MarketEnabled)
}

func TestBuntStore_AddTickerKeepsExistingPreferences(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	require.NoError(t, store.SetDailyEnabled(ctx, 5, false))
	require.NoError(t, store.AddTicker(ctx, 5, "NVDA"))

	pref, err := store.GetPreferences(ctx, 5)
	require.NoError(t, err)
	assert.False(t, pref.DailyEnabled)
}

func TestBuntStore_RemoveTicker(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	require.NoError(t, store.AddTicker(ctx, 1, "AAPL"))
	require.NoError(t, store.AddTicker(ctx, 1, "MSFT"))

	require.NoError(t, store.RemoveTicker(ctx, 1, "AAPL"))
	assert.ErrorIs(t, store.RemoveTicker(ctx, 1, "AAPL"), apperrors.ErrNotTracked)

	tickers, err := store.ListTickers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, tickers)
}

func TestBuntStore_ListTickersEmpty(t *testing.T) {
	store := newBuntStore(t)

	tickers, err := store.ListTickers(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestBuntStore_FlagsAndUserListings(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	require.NoError(t, store.AddTicker(ctx, 3, "AAPL"))
	require.NoError(t, store.AddTicker(ctx, 1, "MSFT"))
	require.NoError(t, store.AddTicker(ctx, 2, "TSLA"))

	require.NoError(t, store.SetDailyEnabled(ctx, 2, false))
	require.NoError(t, store.SetMarketEnabled(ctx, 3, true))
	require.NoError(t, store.SetMarketEnabled(ctx, 9, true))

	daily, err := store.ListDailyEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 9}, daily)

	market, err := store.ListMarketEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, market)

	// idempotent
	require.NoError(t, store.SetDailyEnabled(ctx, 2, false))
	pref, err := store.GetPreferences(ctx, 2)
	require.NoError(t, err)
	assert.False(t, pref.DailyEnabled)
	assert.False(t, pref.UpdatedAt.IsZero())
}

func TestBuntStore_ListTickersForUsers(t *testing.T) {
	ctx := context.Background()
	store := newBuntStore(t)

	require.NoError(t, store.AddTicker(ctx, 1, "AAPL"))
	require.NoError(t, store.AddTicker(ctx, 1, "TSLA"))
	require.NoError(t, store.AddTicker(ctx, 2, "MSFT"))
	require.NoError(t, store.AddTicker(ctx, 11, "GOOG"))

	grouped, err := store.ListTickersForUsers(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64][]string{1: {"AAPL", "TSLA"}, 2: {"MSFT"}}, grouped)
}

func TestBuntStore_CancelledContext(t *testing.T) {
	store := newBuntStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.AddTicker(ctx, 1, "AAPL"), context.Canceled)
	_, err := store.ListTickers(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
