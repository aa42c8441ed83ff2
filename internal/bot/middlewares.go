package bot

import (
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/pkg/logger"
)

// RecoveryMiddleware turns a handler panic into the generic reply.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				ctx := handlers.RequestContext(c)
				logger.FromContext(ctx, log).Error("panic recovered in handler",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)

				userMsg := apperrors.GenericUserMessage
				if errHandler != nil {
					userMsg = errHandler.Handle(ctx, apperrors.NewPanicError(r))
				}

				if sendErr := c.Send(userMsg); sendErr != nil {
					log.Error("failed to notify user about panic", slog.Any("error", sendErr))
				}

				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures and answers with the user-facing message.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := apperrors.GenericUserMessage
			if errHandler != nil {
				userMsg = errHandler.Handle(handlers.RequestContext(c), err)
			}

			_ = c.Send(userMsg)
			return nil
		}
	}
}

// LoggingMiddleware attaches a correlation id to the update and logs its outcome.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()

			ctx, correlationID := logger.WithCorrelationID(handlers.RequestContext(c))
			handlers.WithRequestContext(c, ctx)

			var chatID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}

			command, _, ok := handlers.ParseCommand(c.Text())
			if !ok {
				command = "text"
			}

			reqLog := log.With(
				slog.String("correlation_id", correlationID),
				slog.Int64("chat_id", chatID),
				slog.String("command", command),
			)

			err := next(c)
			if err != nil {
				reqLog.Warn("update failed", slog.Duration("duration", time.Since(start)), slog.Any("error", err))
				return err
			}

			reqLog.Info("update handled", slog.Duration("duration", time.Since(start)))
			return nil
		}
	}
}
