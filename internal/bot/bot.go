// Package bot wires the Telegram transport to the command handlers.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/internal/middleware"
	"github.com/Proton-105/stockgenie-bot/pkg/config"
)

// Deps are the services the command handlers run against.
type Deps struct {
	Watchlists     handlers.Watchlists
	Prices         handlers.Prices
	MarketAlerts   handlers.MarketAlerts
	Calendar       handlers.Calendar
	DigestSchedule string
	Now            func() time.Time
}

// Bot wraps telebot.Bot with the router and middleware chain.
type Bot struct {
	telebot     *telebot.Bot
	log         *slog.Logger
	rateLimitMw *middleware.RateLimitMiddleware
	router      *Router
	errHandler  *apperrors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, rateLimitMw *middleware.RateLimitMiddleware) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Bot.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Bot.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.Webhook},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return newBot(tb, log, rateLimitMw, apperrors.NewHandler(log, cfg.Sentry.Enabled)), nil
}

func newBot(tb *telebot.Bot, log *slog.Logger, rateLimitMw *middleware.RateLimitMiddleware, errHandler *apperrors.Handler) *Bot {
	router := NewRouter(log)
	router.Use(RecoveryMiddleware(log, errHandler))
	router.Use(LoggingMiddleware(log))
	router.Use(ErrorHandlingMiddleware(errHandler))
	router.Use(middleware.Metrics)

	return &Bot{
		telebot:     tb,
		log:         log,
		rateLimitMw: rateLimitMw,
		router:      router,
		errHandler:  errHandler,
	}
}

// Mount registers every command and starts routing text updates.
func (b *Bot) Mount(deps Deps) {
	RegisterCommands(b.router, deps, b.log)

	if b.telebot == nil {
		return
	}

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}
	b.telebot.Handle(telebot.OnText, b.router.Route)
}

// RegisterCommands binds the command table to router.
func RegisterCommands(router *Router, deps Deps, log *slog.Logger) {
	help := handlers.HelpText(deps.DigestSchedule)

	router.RegisterCommand(handlers.CommandStart, handlers.NewStartHandler(help))
	router.RegisterCommand(handlers.CommandHelp, handlers.NewHelpHandler(help))
	router.RegisterCommand(handlers.CommandAdd, handlers.NewAddHandler(deps.Watchlists, deps.Prices, log))
	router.RegisterCommand(handlers.CommandDelete, handlers.NewDeleteHandler(deps.Watchlists, log))
	router.RegisterCommand(handlers.CommandList, handlers.NewListHandler(deps.Watchlists, deps.Prices))
	router.RegisterCommand(handlers.CommandCheck, handlers.NewCheckHandler(deps.Prices))
	router.RegisterCommand(handlers.CommandMute, handlers.NewMuteHandler(deps.Watchlists, deps.MarketAlerts, log))
	router.RegisterCommand(handlers.CommandUnmute, handlers.NewUnmuteHandler(deps.Watchlists, log))
	router.RegisterCommand(handlers.CommandStatus, handlers.NewStatusHandler(deps.Watchlists, deps.MarketAlerts))
	router.RegisterCommand(handlers.CommandMarketAlert,
		handlers.NewMarketAlertHandler(deps.MarketAlerts, deps.Calendar, deps.Now, log))
	router.SetDefault(handlers.NewUnknownHandler(help))
}

// Start runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Notifier returns an alerts.Sender delivering through this bot.
func (b *Bot) Notifier() *Notifier {
	return NewNotifier(b.telebot)
}
