package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sourcegraph/conc/pool"

	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/pkg/logger"
	"github.com/Proton-105/stockgenie-bot/pkg/metrics"
)

const (
	digestJobTag       = "daily_digest"
	defaultConcurrency = 8
)

// DigestReport summarises a single digest run.
type DigestReport struct {
	Recipients int
	Sent       int
	Skipped    int
	Failed     int
}

// Digest sends every daily-enabled user one message with the prices of their watchlist.
type Digest struct {
	prefs       Preferences
	prices      PriceLookup
	sender      Sender
	loc         *time.Location
	at          string
	concurrency int
	log         *slog.Logger
	now         func() time.Time
}

// NewDigest configures a digest firing daily at the "15:04" clock time at, in loc.
func NewDigest(prefs Preferences, prices PriceLookup, sender Sender, loc *time.Location, at string, concurrency int, log *slog.Logger) *Digest {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}

	return &Digest{
		prefs:       prefs,
		prices:      prices,
		sender:      sender,
		loc:         loc,
		at:          at,
		concurrency: concurrency,
		log:         log.With(slog.String("component", "digest")),
		now:         time.Now,
	}
}

// Schedule registers the daily job. The scheduler must have been created in the digest timezone.
func (d *Digest) Schedule(ctx context.Context, scheduler *gocron.Scheduler) (*gocron.Job, error) {
	if scheduler.Location().String() != d.loc.String() {
		return nil, fmt.Errorf("scheduler timezone %s does not match digest timezone %s", scheduler.Location(), d.loc)
	}

	job, err := scheduler.Every(1).Day().At(d.at).Tag(digestJobTag).Do(func() {
		_ = d.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule daily digest: %w", err)
	}

	return job, nil
}

// Run performs one digest pass. A failure for one user never affects the others.
func (d *Digest) Run(ctx context.Context) DigestReport {
	started := time.Now()
	ctx, correlationID := logger.WithCorrelationID(ctx)
	log := d.log.With(slog.String("correlation_id", correlationID))

	var report DigestReport
	defer func() {
		metrics.RecordDigestRun(time.Since(started))
		log.Info("daily digest finished",
			slog.Int("recipients", report.Recipients),
			slog.Int("sent", report.Sent),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed),
			slog.Duration("duration", time.Since(started)),
		)
	}()

	users, err := d.prefs.DailyEnabledUsers(ctx)
	if err != nil {
		log.Error("load daily recipients", slog.Any("error", err))
		return report
	}

	grouped, err := d.prefs.TickersForUsers(ctx, users)
	if err != nil {
		log.Error("load digest watchlists", slog.Any("error", err))
		return report
	}

	report.Recipients = len(users)
	report.Skipped = len(users) - len(grouped)

	day := d.now().In(d.loc)
	var sent, failed atomic.Int64

	p := pool.New().WithMaxGoroutines(d.concurrency)
	for userID, tickers := range grouped {
		p.Go(func() {
			if err := d.deliver(ctx, userID, day, tickers); err != nil {
				failed.Add(1)
				log.Warn("digest delivery failed", slog.Int64("user_id", userID), slog.Any("error", err))
				return
			}
			sent.Add(1)
		})
	}
	p.Wait()

	report.Sent = int(sent.Load())
	report.Failed = int(failed.Load())

	return report
}

func (d *Digest) deliver(ctx context.Context, userID int64, day time.Time, tickers []string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = apperrors.NewPanicError(recovered)
		}
		metrics.RecordDelivery(metrics.KindDigest, err)
	}()

	return d.sender.Send(ctx, userID, digestMessage(day, PriceLines(ctx, d.prices, tickers)))
}
