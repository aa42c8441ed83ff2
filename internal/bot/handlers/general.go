package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"
)

// markdownEscaper escapes the entity markers of Telegram's legacy Markdown mode.
var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

const (
	welcomeHeader = "👋 Welcome to *StockGenie*, your personal Telegram stock assistant!\n\n" +
		"Here’s what I can help you with:\n"
	helpHeader    = "Here’s what I can do for you:\n"
	unknownHeader = "❓ That command doesn't exist. Here's what I can help you with:"
)

// NewStartHandler greets the user and lists the commands.
func NewStartHandler(help string) Handler {
	return func(c telebot.Context) error {
		return c.Send(welcomeHeader+escapeMarkdown(help), telebot.ModeMarkdown)
	}
}

func NewHelpHandler(help string) Handler {
	return func(c telebot.Context) error {
		return c.Send(helpHeader + help)
	}
}

// NewUnknownHandler answers commands that are not registered.
func NewUnknownHandler(help string) Handler {
	return func(c telebot.Context) error {
		if err := c.Send(unknownHeader); err != nil {
			return err
		}
		return c.Send(helpHeader + help)
	}
}

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
