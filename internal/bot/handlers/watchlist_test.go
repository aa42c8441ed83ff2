package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThenList(t *testing.T) {
	fx := newFixture(t)
	add := NewAddHandler(fx.prefs, fx.prices, fx.log)
	list := NewListHandler(fx.prefs, fx.prices)

	c := newContext(1, "/add aapl")
	require.NoError(t, add(c))
	assert.Equal(t, "✅ Now tracking AAPL at $189.50", c.lastText())

	c = newContext(1, "/add TSLA")
	require.NoError(t, add(c))

	c = newContext(1, "/list")
	require.NoError(t, list(c))
	assert.Equal(t, "📋 Your tracked stocks:\n• AAPL: $189.50\n• TSLA: $250.02", c.lastText())
}

func TestAdd_Duplicate(t *testing.T) {
	fx := newFixture(t)
	add := NewAddHandler(fx.prefs, fx.prices, fx.log)

	require.NoError(t, add(newContext(1, "/add AAPL")))

	c := newContext(1, "/add aapl")
	require.NoError(t, add(c))
	assert.Equal(t, "You're already tracking AAPL. Current price: $189.50", c.lastText())

	tickers, err := fx.prefs.Watchlist(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, tickers)
}

func TestAdd_Rejections(t *testing.T) {
	fx := newFixture(t)
	add := NewAddHandler(fx.prefs, fx.prices, fx.log)

	c := newContext(1, "/add")
	require.NoError(t, add(c))
	assert.Equal(t, "Please provide a stock ticker. Example: /add TSLA", c.lastText())

	c = newContext(1, "/add NOPE")
	require.NoError(t, add(c))
	assert.Equal(t, "Couldn't fetch stock data. Check the ticker symbol.", c.lastText())

	tickers, err := fx.prefs.Watchlist(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestAdd_CreatesDefaultPreferences(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, NewAddHandler(fx.prefs, fx.prices, fx.log)(newContext(5, "/add AAPL")))

	pref, err := fx.prefs.Preferences(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, pref.DailyEnabled)
	assert.False(t, pref.MarketEnabled)
}

func TestDelete(t *testing.T) {
	fx := newFixture(t)
	add := NewAddHandler(fx.prefs, fx.prices, fx.log)
	del := NewDeleteHandler(fx.prefs, fx.log)

	c := newContext(1, "/delete MSFT")
	require.NoError(t, del(c))
	assert.Equal(t, "You're not tracking this stock.", c.lastText())

	require.NoError(t, add(newContext(1, "/add AAPL")))

	c = newContext(1, "/delete aapl")
	require.NoError(t, del(c))
	assert.Equal(t, "🗑️ AAPL has been removed from your tracked stocks.", c.lastText())

	c = newContext(1, "/delete")
	require.NoError(t, del(c))
	assert.Equal(t, "Please provide a stock ticker. Example: /delete TSLA", c.lastText())
}

func TestList_Empty(t *testing.T) {
	fx := newFixture(t)

	c := newContext(1, "/list")
	require.NoError(t, NewListHandler(fx.prefs, fx.prices)(c))
	assert.Equal(t, "📭 You're not tracking any stocks. Use /add <ticker> to get started.", c.lastText())
}

func TestCheck(t *testing.T) {
	fx := newFixture(t)
	check := NewCheckHandler(fx.prices)

	testCases := []struct {
		text     string
		expected string
	}{
		{text: "/check tsla", expected: "🔎 Current price of TSLA is $250.02"},
		{text: "/check NOPE", expected: "Couldn't fetch price for NOPE. Check the ticker symbol."},
		{text: "/check", expected: "Please provide a stock ticker. Example: /check TSLA"},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			c := newContext(1, tc.text)
			require.NoError(t, check(c))
			assert.Equal(t, tc.expected, c.lastText())
		})
	}
}

func TestSendErrorsPropagate(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("telegram: bot was blocked by the user")

	c := newContext(1, "/check AAPL")
	c.sendErr = boom

	assert.ErrorIs(t, NewCheckHandler(fx.prices)(c), boom)
}
