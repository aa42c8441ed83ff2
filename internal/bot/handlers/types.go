// Package handlers implements the bot's chat commands.
package handlers

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"
)

// Handler processes a single update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// contextKey is the telebot.Context slot holding the request context.
const contextKey = "request_ctx"

// WithRequestContext stores ctx on the update so handlers can retrieve it.
func WithRequestContext(c telebot.Context, ctx context.Context) {
	c.Set(contextKey, ctx)
}

// RequestContext returns the context stored by WithRequestContext, or Background.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// ParseCommand splits "/Add@StockGenieBot aapl" into ("add", ["aapl"]).
// ok is false for text that is not a command.
func ParseCommand(text string) (command string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	command = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}

	return strings.ToLower(command), fields[1:], true
}

// chatID is the identity used for storage and outbound messages.
func chatID(c telebot.Context) (int64, bool) {
	if chat := c.Chat(); chat != nil {
		return chat.ID, true
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID, true
	}
	return 0, false
}

func normalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
