package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/stockgenie-bot/internal/market"
	"github.com/Proton-105/stockgenie-bot/internal/preferences"
	"github.com/Proton-105/stockgenie-bot/internal/repository"
)

var errDeliveryFailed = errors.New("chat not found")

type sentMessage struct {
	userID int64
	msg    Message
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]bool
}

func (s *recordingSender) Send(_ context.Context, userID int64, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFor[userID] {
		return errDeliveryFailed
	}
	s.sent = append(s.sent, sentMessage{userID: userID, msg: msg})
	return nil
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func (s *recordingSender) byUser() map[int64]Message {
	out := make(map[int64]Message)
	for _, m := range s.messages() {
		out[m.userID] = m.msg
	}
	return out
}

type staticPrices map[string]decimal.Decimal

func (p staticPrices) Price(_ context.Context, ticker string) (decimal.Decimal, bool) {
	price, ok := p[ticker]
	return price, ok
}

// flakyPrefs fails SetMarket when armed, otherwise delegates.
type flakyPrefs struct {
	Preferences
	failSetMarket bool
}

func (f *flakyPrefs) SetMarket(ctx context.Context, userID int64, enabled bool) error {
	if f.failSetMarket {
		return errors.New("connection refused")
	}
	return f.Preferences.SetMarket(ctx, userID, enabled)
}

// gatedPrefs holds SetMarket(true) for gatedUser until release is closed.
type gatedPrefs struct {
	Preferences
	gatedUser int64
	entered   chan struct{}
	release   chan struct{}
}

func newGatedPrefs(t *testing.T, userID int64) *gatedPrefs {
	t.Helper()

	return &gatedPrefs{
		Preferences: newPrefs(t),
		gatedUser:   userID,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedPrefs) SetMarket(ctx context.Context, userID int64, enabled bool) error {
	if enabled && userID == g.gatedUser {
		close(g.entered)
		<-g.release
	}
	return g.Preferences.SetMarket(ctx, userID, enabled)
}

func newPrefs(t *testing.T) *preferences.Service {
	t.Helper()

	store, err := repository.NewBuntStore(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return preferences.NewService(store, time.Second, testLogger())
}

func newCalendar(t *testing.T) *market.Calendar {
	t.Helper()

	cal, err := market.NewCalendar(market.DefaultTimezone, market.DefaultOpen, market.DefaultClose)
	require.NoError(t, err)
	return cal
}

func newScheduler(t *testing.T) *gocron.Scheduler {
	t.Helper()

	s := gocron.NewScheduler(time.UTC)
	t.Cleanup(s.Stop)
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
