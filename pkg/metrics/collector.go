package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes reported by RecordPriceLookup.
const (
	LookupOK          = "ok"
	LookupCached      = "cached"
	LookupUnavailable = "unavailable"
	LookupBreakerOpen = "breaker_open"
)

// Alert kinds reported by RecordDelivery.
const (
	KindDigest    = "digest"
	KindMarket    = "market"
	KindReconcile = "reconcile"
)

// Rate limiter backends reported by RecordRateLimitCheck.
const (
	BackendPrimary  = "redis"
	BackendFallback = "memory"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	priceLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_lookups_total",
			Help: "Price lookups split by outcome",
		},
		[]string{"outcome"},
	)
	priceLookupDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_lookup_duration_seconds",
			Help:    "Latency of upstream price provider calls",
			Buckets: prometheus.DefBuckets,
		},
	)
	alertsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_delivered_total",
			Help: "Outbound alert messages split by kind and status",
		},
		[]string{"kind", "status"},
	)
	digestRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Number of daily digest runs",
		},
	)
	digestDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_duration_seconds",
			Help:    "Wall time of a full daily digest run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
	rateLimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_checks_total",
			Help: "Rate limit checks split by backend and result",
		},
		[]string{"backend", "result"},
	)
	activeMarketAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_market_alerts",
			Help: "Number of armed per-user market alert jobs",
		},
	)
)

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	command = orUnknown(command)
	status = orUnknown(status)

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	errorsTotal.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}

// RecordPriceLookup counts a lookup by outcome.
func RecordPriceLookup(outcome string) {
	priceLookupsTotal.WithLabelValues(orUnknown(outcome)).Inc()
}

// ObserveProviderLatency records how long an upstream provider call took.
func ObserveProviderLatency(duration time.Duration) {
	priceLookupDurationSeconds.Observe(duration.Seconds())
}

// RecordDelivery counts an outbound alert message.
func RecordDelivery(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	alertsDeliveredTotal.WithLabelValues(orUnknown(kind), status).Inc()
}

// RecordDigestRun counts a digest run and its duration.
func RecordDigestRun(duration time.Duration) {
	digestRunsTotal.Inc()
	digestDurationSeconds.Observe(duration.Seconds())
}

// RecordRateLimitCheck counts a rate limit decision.
func RecordRateLimitCheck(backend string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	rateLimitChecksTotal.WithLabelValues(orUnknown(backend), result).Inc()
}

// SetActiveMarketAlerts updates the armed market alert gauge.
func SetActiveMarketAlerts(count int) {
	activeMarketAlerts.Set(float64(count))
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
