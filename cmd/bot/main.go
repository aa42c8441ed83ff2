package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-co-op/gocron"
	_ "github.com/lib/pq"

	"github.com/Proton-105/stockgenie-bot/internal/alerts"
	"github.com/Proton-105/stockgenie-bot/internal/bot"
	"github.com/Proton-105/stockgenie-bot/internal/database"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/internal/health"
	"github.com/Proton-105/stockgenie-bot/internal/lifecycle"
	"github.com/Proton-105/stockgenie-bot/internal/market"
	"github.com/Proton-105/stockgenie-bot/internal/middleware"
	"github.com/Proton-105/stockgenie-bot/internal/preferences"
	"github.com/Proton-105/stockgenie-bot/internal/pricing"
	"github.com/Proton-105/stockgenie-bot/internal/ratelimit"
	"github.com/Proton-105/stockgenie-bot/internal/repository"
	"github.com/Proton-105/stockgenie-bot/pkg/config"
	"github.com/Proton-105/stockgenie-bot/pkg/graceful"
	"github.com/Proton-105/stockgenie-bot/pkg/logger"
	redisclient "github.com/Proton-105/stockgenie-bot/pkg/redis"
)

const (
	sentryFlushTimeout = 2 * time.Second
	pruneInterval      = 5 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("stockgenie bot exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.AppEnv}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(sentryFlushTimeout)
	}

	log, level := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	slog.SetDefault(log)

	config.Watch(v, func(updated *config.Config) {
		level.Set(logger.ParseLevel(updated.Logger.Level))
		log.Info("log level reloaded", slog.String("level", updated.Logger.Level))
	}, func(err error) {
		log.Warn("config reload rejected", slog.Any("error", err))
	})

	log.Info("starting stockgenie bot",
		slog.String("env", cfg.AppEnv),
		slog.String("store", cfg.Store.Driver),
		slog.String("mode", cfg.Bot.Mode),
	)

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)

	store, err := openStore(ctx, cfg.Store, checker, log)
	if err != nil {
		return err
	}
	shutdown.Register("store", func(context.Context) error { return store.Close() })

	rdb := connectRedis(ctx, cfg.Redis, log)
	if rdb != nil {
		checker.AddCheck("redis", health.NewRedisChecker(rdb))
		shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
	}

	calendar, err := market.NewCalendar(cfg.Market.Timezone, cfg.Market.Open, cfg.Market.Close)
	if err != nil {
		return fmt.Errorf("market calendar: %w", err)
	}

	digestLoc, err := time.LoadLocation(cfg.Digest.Timezone)
	if err != nil {
		return fmt.Errorf("load digest timezone %q: %w", cfg.Digest.Timezone, err)
	}

	prefs := preferences.NewService(store, cfg.Store.QueryTimeout, log)
	prices := pricing.NewLookup(pricing.NewYahooProvider(), pricing.NewCache(rdb.Raw(), cfg.Pricing.CacheTTL), cfg.Pricing.Timeout, log)

	scheduler := gocron.NewScheduler(digestLoc)
	scheduler.SingletonModeAll()
	checker.AddCheck("scheduler", health.NewSchedulerChecker(scheduler))

	rateLimitMw, err := newRateLimitMiddleware(cfg.RateLimit, rdb, scheduler, log)
	if err != nil {
		return err
	}

	tgBot, err := bot.New(*cfg, log, rateLimitMw)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tgBot.Telebot()))

	notifier := tgBot.Notifier()
	marketAlerts := alerts.NewMarketAlerts(scheduler, prefs, prices, calendar, notifier, cfg.Alerts.NotifyOnReconcile, log)

	if reset, err := marketAlerts.Reconcile(ctx); err != nil {
		log.Error("reconcile market alerts", slog.Any("error", err))
	} else if reset > 0 {
		log.Info("market alert flags reset after restart", slog.Int("users", reset))
	}

	digest := alerts.NewDigest(prefs, prices, notifier, digestLoc, cfg.Digest.Time, cfg.Digest.Concurrency, log)
	if _, err := digest.Schedule(ctx, scheduler); err != nil {
		return err
	}

	tgBot.Mount(bot.Deps{
		Watchlists:     prefs,
		Prices:         prices,
		MarketAlerts:   marketAlerts,
		Calendar:       calendar,
		DigestSchedule: fmt.Sprintf("%s %s", cfg.Digest.Time, cfg.Digest.Timezone),
	})

	scheduler.StartAsync()
	shutdown.Register("scheduler", func(context.Context) error {
		scheduler.Stop()
		return nil
	})
	shutdown.Register("market_alerts", func(context.Context) error {
		marketAlerts.Shutdown()
		return nil
	})

	ops := graceful.NewServer(log, cfg.Server.Port, health.NewMux(checker), cfg.Server.ShutdownTimeout)
	opsDone := make(chan error, 1)
	go func() { opsDone <- ops.ListenAndServe(ctx) }()

	go tgBot.Start()
	shutdown.Register("telegram", func(context.Context) error {
		tgBot.Stop()
		return nil
	})

	log.Info("stockgenie bot started")

	select {
	case <-ctx.Done():
	case err := <-opsDone:
		if err != nil {
			log.Error("ops server stopped", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig, checker *health.Checker, log *slog.Logger) (repository.Store, error) {
	if cfg.Driver == "buntdb" {
		store, err := repository.NewBuntStore(cfg.Path, log)
		if err != nil {
			return nil, fmt.Errorf("open buntdb store: %w", err)
		}
		return store, nil
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	alwaysRetry := func(error) bool { return true }
	if err := apperrors.WithRetry(ctx, apperrors.DefaultRetryPolicy, alwaysRetry, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Migrate {
		if err := database.NewMigrator(db, log).Apply(ctx, database.Migrations()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	checker.AddCheck("database", health.NewDBChecker(db))
	return repository.NewPostgresStore(db, log), nil
}

// connectRedis returns nil when Redis is disabled or unreachable; the bot then runs without a price cache
// and with in-memory rate limiting.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) *redisclient.Client {
	if !cfg.Enabled {
		return nil
	}

	client, err := redisclient.New(ctx, cfg)
	if err != nil {
		log.Warn("redis unavailable, continuing without it", slog.Any("error", err))
		return nil
	}

	return client
}

func newRateLimitMiddleware(
	cfg config.RateLimitConfig,
	rdb *redisclient.Client,
	scheduler *gocron.Scheduler,
	log *slog.Logger,
) (*middleware.RateLimitMiddleware, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rules, err := ratelimit.NewRules(cfg)
	if err != nil {
		return nil, fmt.Errorf("rate limit rules: %w", err)
	}

	memory := ratelimit.NewMemoryLimiter()
	if _, err := scheduler.Every(pruneInterval).Tag("ratelimit_prune").Do(func() {
		if pruned := memory.Prune(rules.Window()); pruned > 0 {
			log.Debug("pruned idle rate limit buckets", slog.Int("buckets", pruned))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule rate limit prune: %w", err)
	}

	var limiter ratelimit.Limiter = memory
	if rdb != nil {
		limiter = ratelimit.NewFailoverLimiter(ratelimit.NewRedisLimiter(rdb.Raw(), log), memory, log)
	}

	return middleware.NewRateLimitMiddleware(limiter, rules, log), nil
}
