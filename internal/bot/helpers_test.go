package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"
)

type fakeContext struct {
	telebot.Context

	mu      sync.Mutex
	text    string
	chat    *telebot.Chat
	values  map[string]any
	replies []string
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

func (f *fakeContext) Send(what any, _ ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	text, _ := what.(string)
	f.replies = append(f.replies, text)
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
	return append([]string(nil), f.replies...)
}

type stubPrices map[string]decimal.Decimal

func (p stubPrices) Price(_ context.Context, ticker string) (decimal.Decimal, bool) {
	price, ok := p[ticker]
	return price, ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
