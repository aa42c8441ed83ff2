package pricing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/pkg/metrics"
)

const (
	defaultTimeout = 5 * time.Second
	providerName   = "price_provider"
)

// Lookup resolves prices through an optional cache and a circuit-broken provider.
// It never returns an error: every failure collapses to ok=false.
type Lookup struct {
	provider Provider
	cache    *Cache
	breaker  *apperrors.CircuitBreaker
	timeout  time.Duration
	log      *slog.Logger
}

// NewLookup wires a provider with a cache (nil disables caching) and a per-call timeout.
func NewLookup(provider Provider, cache *Cache, timeout time.Duration, log *slog.Logger) *Lookup {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Lookup{
		provider: provider,
		cache:    cache,
		breaker:  apperrors.NewCircuitBreaker(apperrors.BreakerSettings{}),
		timeout:  timeout,
		log:      log,
	}
}

// Price returns the latest known price for ticker.
func (l *Lookup) Price(ctx context.Context, ticker string) (decimal.Decimal, bool) {
	if l.cache != nil {
		price, hit, err := l.cache.Get(ctx, ticker)
		if err != nil {
			l.log.Warn("price cache read failed", slog.String("ticker", ticker), slog.Any("error", err))
		}
		if hit {
			metrics.RecordPriceLookup(metrics.LookupCached)
			return price, true
		}
	}

	var (
		price    decimal.Decimal
		quoteErr error
	)

	err := l.breaker.Call(func() error {
		callCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		started := time.Now()
		price, quoteErr = l.provider.Quote(callCtx, ticker)
		metrics.ObserveProviderLatency(time.Since(started))

		// unknown tickers do not count against the breaker
		if errors.Is(quoteErr, ErrNoQuote) {
			return nil
		}
		return quoteErr
	})

	switch {
	case apperrors.IsRejection(err):
		metrics.RecordPriceLookup(metrics.LookupBreakerOpen)
		return decimal.Zero, false
	case err != nil || quoteErr != nil || !price.IsPositive():
		if err != nil {
			appErr := apperrors.NewExternalAPIError(providerName, err)
			metrics.RecordError(appErr.Code, string(appErr.Severity))
			l.log.Warn("price lookup failed",
				slog.String("ticker", ticker),
				slog.String("code", appErr.Code),
				slog.String("severity", string(appErr.Severity)),
				slog.Any("error", appErr.Unwrap()),
			)
		}
		metrics.RecordPriceLookup(metrics.LookupUnavailable)
		return decimal.Zero, false
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, ticker, price); err != nil {
			l.log.Warn("price cache write failed", slog.String("ticker", ticker), slog.Any("error", err))
		}
	}

	metrics.RecordPriceLookup(metrics.LookupOK)
	return price, true
}

// FormatPrice renders a price the way every user-facing message shows it, e.g. "$123.45".
func FormatPrice(price decimal.Decimal) string {
	return "$" + price.StringFixed(2)
}
