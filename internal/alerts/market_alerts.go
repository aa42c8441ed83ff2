package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/internal/market"
	"github.com/Proton-105/stockgenie-bot/pkg/logger"
	"github.com/Proton-105/stockgenie-bot/pkg/metrics"
)

const marketJobTagPrefix = "market_alert_"

type marketJob struct {
	job     *gocron.Job
	minutes int
	armedAt time.Time
}

// MarketAlerts owns the per-user recurring market-hour jobs.
// A user has a registry entry exactly while their persisted market flag is on.
type MarketAlerts struct {
	mu   sync.Mutex
	jobs map[int64]*marketJob

	scheduler *gocron.Scheduler
	prefs     Preferences
	prices    PriceLookup
	calendar  *market.Calendar
	sender    Sender
	log       *slog.Logger
	now       func() time.Time

	notifyOnReconcile bool

	// ctx is handed to job runs and cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMarketAlerts builds the registry. Jobs only run once the scheduler is started.
func NewMarketAlerts(
	scheduler *gocron.Scheduler,
	prefs Preferences,
	prices PriceLookup,
	calendar *market.Calendar,
	sender Sender,
	notifyOnReconcile bool,
	log *slog.Logger,
) *MarketAlerts {
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MarketAlerts{
		jobs:              make(map[int64]*marketJob),
		scheduler:         scheduler,
		prefs:             prefs,
		prices:            prices,
		calendar:          calendar,
		sender:            sender,
		log:               log.With(slog.String("component", "market_alerts")),
		now:               time.Now,
		notifyOnReconcile: notifyOnReconcile,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Arm schedules a recurring update every minutes minutes, first firing one full interval from now.
func (m *MarketAlerts) Arm(ctx context.Context, userID int64, minutes int) error {
	if minutes <= 0 {
		return apperrors.ErrInvalidInterval
	}

	entry, err := m.reserve(userID, minutes)
	if err != nil {
		return err
	}

	// the flag write runs outside the lock; the reserved entry keeps a concurrent Arm for the same user out
	persistErr := m.prefs.SetMarket(ctx, userID, true)

	m.mu.Lock()
	current := m.jobs[userID]
	if persistErr != nil && current == entry {
		m.removeLocked(userID)
	}
	active := len(m.jobs)
	m.mu.Unlock()

	switch {
	case persistErr != nil:
		return persistErr
	case current != entry:
		// disarmed while the flag was being written
		if m.ctx.Err() == nil {
			if err := m.prefs.SetMarket(ctx, userID, false); err != nil {
				m.log.Warn("clear market flag after concurrent disarm", slog.Int64("user_id", userID), slog.Any("error", err))
			}
		}
		return nil
	}

	metrics.SetActiveMarketAlerts(active)
	m.log.Info("market alert armed", slog.Int64("user_id", userID), slog.Int("interval_minutes", minutes))

	return nil
}

// reserve schedules the job and claims the registry slot for userID.
func (m *MarketAlerts) reserve(userID int64, minutes int) (*marketJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[userID]; ok {
		return nil, apperrors.ErrAlreadyActive
	}

	job, err := m.scheduler.
		Every(minutes).Minutes().
		Tag(marketJobTag(userID)).
		WaitForSchedule().
		Do(func() { m.tick(m.ctx, userID) })
	if err != nil {
		return nil, fmt.Errorf("schedule market alert: %w", err)
	}

	entry := &marketJob{job: job, minutes: minutes, armedAt: m.now()}
	m.jobs[userID] = entry
	return entry, nil
}

// Disarm removes the user's job if any and always clears the persisted flag.
func (m *MarketAlerts) Disarm(ctx context.Context, userID int64) error {
	m.mu.Lock()
	if m.removeLocked(userID) {
		m.log.Info("market alert disarmed", slog.Int64("user_id", userID))
	}
	metrics.SetActiveMarketAlerts(len(m.jobs))
	m.mu.Unlock()

	return m.prefs.SetMarket(ctx, userID, false)
}

// Interval reports the armed interval in minutes for userID.
func (m *MarketAlerts) Interval(userID int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.jobs[userID]
	if !ok {
		return 0, false
	}
	return entry.minutes, true
}

// Active returns the number of armed jobs.
func (m *MarketAlerts) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Reconcile clears market flags left over from a previous process, whose jobs did not survive the restart.
// It returns how many users were reset.
func (m *MarketAlerts) Reconcile(ctx context.Context) (int, error) {
	users, err := m.prefs.MarketEnabledUsers(ctx)
	if err != nil {
		return 0, err
	}

	reset := 0
	for _, userID := range users {
		if _, armed := m.Interval(userID); armed {
			continue
		}

		if err := m.prefs.SetMarket(ctx, userID, false); err != nil {
			m.log.Error("reset stale market flag failed", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}
		reset++

		if !m.notifyOnReconcile {
			continue
		}

		sendErr := m.sender.Send(ctx, userID, Message{Text: reconcileNotice})
		metrics.RecordDelivery(metrics.KindReconcile, sendErr)
		if sendErr != nil {
			m.log.Warn("reconcile notice failed", slog.Int64("user_id", userID), slog.Any("error", sendErr))
		}
	}

	if reset > 0 {
		m.log.Info("stale market alerts reset", slog.Int("users", reset))
	}

	return reset, nil
}

// Shutdown removes every job. Persisted flags are left untouched so Reconcile can find them on next start.
func (m *MarketAlerts) Shutdown() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	for userID := range m.jobs {
		m.removeLocked(userID)
	}
	metrics.SetActiveMarketAlerts(0)
}

func (m *MarketAlerts) tick(ctx context.Context, userID int64) {
	if ctx.Err() != nil || !m.calendar.IsOpen(m.now()) {
		return
	}

	ctx, correlationID := logger.WithCorrelationID(ctx)
	log := m.log.With(slog.Int64("user_id", userID), slog.String("correlation_id", correlationID))

	tickers, err := m.prefs.Watchlist(ctx, userID)
	if err != nil {
		log.Error("load watchlist for market alert", slog.Any("error", err))
		return
	}
	if len(tickers) == 0 {
		return
	}

	sendErr := m.sender.Send(ctx, userID, marketUpdate(PriceLines(ctx, m.prices, tickers)))
	metrics.RecordDelivery(metrics.KindMarket, sendErr)
	if sendErr != nil {
		log.Warn("market alert delivery failed", slog.Any("error", sendErr))
		return
	}

	log.Debug("market alert delivered", slog.Int("tickers", len(tickers)))
}

func (m *MarketAlerts) removeLocked(userID int64) bool {
	entry, ok := m.jobs[userID]
	if !ok {
		return false
	}

	m.scheduler.RemoveByReference(entry.job)
	delete(m.jobs, userID)
	return true
}

func marketJobTag(userID int64) string {
	return marketJobTagPrefix + strconv.FormatInt(userID, 10)
}
