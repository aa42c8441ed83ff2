package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

func newMarketAlerts(t *testing.T, prefs Preferences, sender Sender, notify bool) *MarketAlerts {
	t.Helper()

	prices := staticPrices{"AAPL": decimal.RequireFromString("189.5"), "TSLA": decimal.RequireFromString("250")}
	alerts := NewMarketAlerts(newScheduler(t), prefs, prices, newCalendar(t), sender, notify, testLogger())
	t.Cleanup(alerts.Shutdown)
	return alerts
}

func TestMarketAlerts_ArmAndDisarm(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t)
	alerts := newMarketAlerts(t, prefs, &recordingSender{}, false)

	require.NoError(t, alerts.Arm(ctx, 1, 60))

	minutes, ok := alerts.Interval(1)
	require.True(t, ok)
	assert.Equal(t, 60, minutes)

	pref, err := prefs.Preferences(ctx, 1)
	require.NoError(t, err)
	assert.True(t, pref.MarketEnabled)

	require.NoError(t, alerts.Disarm(ctx, 1))
	_, ok = alerts.Interval(1)
	assert.False(t, ok)
	assert.Equal(t, 0, alerts.Active())

	pref, err = prefs.Preferences(ctx, 1)
	require.NoError(t, err)
	assert.False(t, pref.MarketEnabled)
}

func TestMarketAlerts_SecondArmKeepsOriginalInterval(t *testing.T) {
	ctx := context.Background()
	alerts := newMarketAlerts(t, newPrefs(t), &recordingSender{}, false)

	require.NoError(t, alerts.Arm(ctx, 1, 60))
	assert.ErrorIs(t, alerts.Arm(ctx, 1, 30), apperrors.ErrAlreadyActive)

	minutes, ok := alerts.Interval(1)
	require.True(t, ok)
	assert.Equal(t, 60, minutes)
	assert.Equal(t, 1, alerts.Active())
}

func TestMarketAlerts_DisarmWithoutJobClearsFlag(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t)
	alerts := newMarketAlerts(t, prefs, &recordingSender{}, false)

	require.NoError(t, prefs.SetMarket(ctx, 4, true))
	require.NoError(t, alerts.Disarm(ctx, 4))
	require.NoError(t, alerts.Disarm(ctx, 4))

	pref, err := prefs.Preferences(ctx, 4)
	require.NoError(t, err)
	assert.False(t, pref.MarketEnabled)
}

func TestMarketAlerts_ArmRollsBackWhenPersistFails(t *testing.T) {
	prefs := &flakyPrefs{Preferences: newPrefs(t), failSetMarket: true}
	alerts := newMarketAlerts(t, prefs, &recordingSender{}, false)

	assert.Error(t, alerts.Arm(context.Background(), 1, 30))

	_, ok := alerts.Interval(1)
	assert.False(t, ok)
	assert.Equal(t, 0, alerts.Active())
	assert.Empty(t, alerts.scheduler.Jobs())
}

func TestMarketAlerts_ArmDoesNotBlockOtherUsersWhilePersisting(t *testing.T) {
	ctx := context.Background()
	prefs := newGatedPrefs(t, 1)
	alerts := newMarketAlerts(t, prefs, &recordingSender{}, false)

	armed := make(chan error, 1)
	go func() { armed <- alerts.Arm(ctx, 1, 30) }()
	<-prefs.entered

	done := make(chan error, 1)
	go func() {
		if _, ok := alerts.Interval(2); ok {
			done <- errors.New("user 2 should not be armed yet")
			return
		}
		done <- alerts.Arm(ctx, 2, 15)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("registry stayed locked while another user's flag was being written")
	}

	assert.ErrorIs(t, alerts.Arm(ctx, 1, 45), apperrors.ErrAlreadyActive)

	close(prefs.release)
	require.NoError(t, <-armed)

	interval, ok := alerts.Interval(1)
	require.True(t, ok)
	assert.Equal(t, 30, interval)
	assert.Equal(t, 2, alerts.Active())
}

func TestMarketAlerts_DisarmWhileArmIsPersisting(t *testing.T) {
	ctx := context.Background()
	prefs := newGatedPrefs(t, 1)
	alerts := newMarketAlerts(t, prefs, &recordingSender{}, false)

	armed := make(chan error, 1)
	go func() { armed <- alerts.Arm(ctx, 1, 30) }()
	<-prefs.entered

	require.NoError(t, alerts.Disarm(ctx, 1))
	close(prefs.release)
	require.NoError(t, <-armed)

	_, ok := alerts.Interval(1)
	assert.False(t, ok)
	assert.Empty(t, alerts.scheduler.Jobs())

	users, err := prefs.MarketEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestMarketAlerts_ArmRejectsNonPositiveInterval(t *testing.T) {
	alerts := newMarketAlerts(t, newPrefs(t), &recordingSender{}, false)

	assert.ErrorIs(t, alerts.Arm(context.Background(), 1, 0), apperrors.ErrInvalidInterval)
}

func TestMarketAlerts_Tick(t *testing.T) {
	ctx := context.Background()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		now      time.Time
		tickers  []string
		expected []string
	}{
		{
			name:    "market closed on weekend",
			now:     time.Date(2025, 3, 15, 12, 0, 0, 0, ny),
			tickers: []string{"AAPL", "TSLA"},
		},
		{
			name:    "market closed before open",
			now:     time.Date(2025, 3, 12, 8, 0, 0, 0, ny),
			tickers: []string{"AAPL"},
		},
		{
			name: "market open with empty watchlist",
			now:  time.Date(2025, 3, 12, 10, 0, 0, 0, ny),
		},
		{
			name:     "market open",
			now:      time.Date(2025, 3, 12, 10, 0, 0, 0, ny),
			tickers:  []string{"AAPL", "TSLA", "NOPE"},
			expected: []string{"📈 Market Update:\n• AAPL: $189.50\n• TSLA: $250.00\n• NOPE: Price not available"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prefs := newPrefs(t)
			for _, ticker := range tc.tickers {
				require.NoError(t, prefs.Track(ctx, 7, ticker))
			}

			sender := &recordingSender{}
			alerts := newMarketAlerts(t, prefs, sender, false)
			alerts.now = func() time.Time { return tc.now }

			alerts.tick(ctx, 7)

			var texts []string
			for _, m := range sender.messages() {
				assert.Equal(t, int64(7), m.userID)
				assert.False(t, m.msg.Markdown)
				texts = append(texts, m.msg.Text)
			}
			assert.Equal(t, tc.expected, texts)
		})
	}
}

func TestMarketAlerts_TickAfterShutdownIsSilent(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t)
	require.NoError(t, prefs.Track(ctx, 7, "AAPL"))

	sender := &recordingSender{}
	alerts := newMarketAlerts(t, prefs, sender, false)
	alerts.now = func() time.Time { return time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC) }

	alerts.Shutdown()
	alerts.tick(alerts.ctx, 7)

	assert.Empty(t, sender.messages())
}

func TestMarketAlerts_ShutdownRemovesJobsButKeepsFlags(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t)
	alerts := newMarketAlerts(t, prefs, &recordingSender{}, false)

	require.NoError(t, alerts.Arm(ctx, 1, 30))
	require.NoError(t, alerts.Arm(ctx, 2, 60))

	alerts.Shutdown()

	assert.Equal(t, 0, alerts.Active())
	assert.Empty(t, alerts.scheduler.Jobs())

	users, err := prefs.MarketEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, users)
}

func TestMarketAlerts_Reconcile(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t)
	require.NoError(t, prefs.SetMarket(ctx, 1, true))
	require.NoError(t, prefs.SetMarket(ctx, 2, true))
	require.NoError(t, prefs.SetMarket(ctx, 3, false))

	sender := &recordingSender{failFor: map[int64]bool{2: true}}
	alerts := newMarketAlerts(t, prefs, sender, true)

	reset, err := alerts.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reset)

	users, err := prefs.MarketEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	delivered := sender.byUser()
	require.Len(t, delivered, 1)
	assert.Contains(t, delivered[1].Text, "/marketalert")
}

func TestMarketAlerts_ReconcileWithoutNotice(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t)
	require.NoError(t, prefs.SetMarket(ctx, 1, true))

	sender := &recordingSender{}
	alerts := newMarketAlerts(t, prefs, sender, false)

	reset, err := alerts.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)
	assert.Empty(t, sender.messages())
}
