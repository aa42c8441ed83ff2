package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/bot/handlers"
	"github.com/Proton-105/stockgenie-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandLabel(c), status, time.Since(start))

		return err
	}
}

// commandLabel keeps label cardinality bounded: arguments and free text never become labels.
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	command, _, ok := handlers.ParseCommand(c.Text())
	if !ok {
		return "text"
	}
	if !handlers.IsKnownCommand(command) {
		return "unknown"
	}

	return command
}
