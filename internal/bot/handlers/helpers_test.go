package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/alerts"
	"github.com/Proton-105/stockgenie-bot/internal/market"
	"github.com/Proton-105/stockgenie-bot/internal/preferences"
	"github.com/Proton-105/stockgenie-bot/internal/repository"
)

type reply struct {
	text string
	opts []any
}

// fakeContext implements the parts of telebot.Context the handlers touch.
type fakeContext struct {
	telebot.Context

	mu      sync.Mutex
	text    string
	chat    *telebot.Chat
	values  map[string]any
	replies []reply
	sendErr error
}

func newContext(chatID int64, text string) *fakeContext {
	return &fakeContext{
		text:   text,
		chat:   &telebot.Chat{ID: chatID, Type: telebot.ChatPrivate},
		values: make(map[string]any),
	}
}

func (f *fakeContext) Text() string          { return f.text }
func (f *fakeContext) Chat() *telebot.Chat   { return f.chat }
func (f *fakeContext) Sender() *telebot.User { return &telebot.User{ID: f.chat.ID} }

func (f *fakeContext) Send(what any, opts ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	text, _ := what.(string)
	f.replies = append(f.replies, reply{text: text, opts: opts})
	return nil
}

func (f *fakeContext) Set(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

func (f *fakeContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

func (f *fakeContext) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.replies))
	for _, r := range f.replies {
		out = append(out, r.text)
	}
	return out
}

func (f *fakeContext) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type stubPrices map[string]decimal.Decimal

func (p stubPrices) Price(_ context.Context, ticker string) (decimal.Decimal, bool) {
	price, ok := p[ticker]
	return price, ok
}

type nopSender struct{}

func (nopSender) Send(context.Context, int64, alerts.Message) error { return nil }

type fixture struct {
	prefs    *preferences.Service
	market   *alerts.MarketAlerts
	calendar *market.Calendar
	prices   stubPrices
	log      *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.NewBuntStore(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	calendar, err := market.NewCalendar(market.DefaultTimezone, market.DefaultOpen, market.DefaultClose)
	require.NoError(t, err)

	prefs := preferences.NewService(store, time.Second, log)
	prices := stubPrices{
		"AAPL": decimal.RequireFromString("189.5"),
		"TSLA": decimal.RequireFromString("250.016"),
	}

	scheduler := gocron.NewScheduler(time.UTC)
	t.Cleanup(scheduler.Stop)

	marketAlerts := alerts.NewMarketAlerts(scheduler, prefs, prices, calendar, nopSender{}, false, log)
	t.Cleanup(marketAlerts.Shutdown)

	return &fixture{
		prefs:    prefs,
		market:   marketAlerts,
		calendar: calendar,
		prices:   prices,
		log:      log,
	}
}

func openMarket() time.Time {
	// Wednesday 11:00 in New York
	return time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
}

func closedMarket() time.Time {
	// Saturday
	return time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC)
}
