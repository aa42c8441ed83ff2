package alerts

import (
	"strconv"
	"strings"

	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

const (
	// CancelToken disarms market alerts when passed to /marketalert.
	CancelToken = "0"

	// MaxIntervalMinutes caps an interval at one week.
	MaxIntervalMinutes = 7 * 24 * 60
)

// ParseInterval converts tokens like "1hour" or "30min" into minutes.
func ParseInterval(token string) (int, error) {
	token = strings.ToLower(strings.TrimSpace(token))

	var (
		digits     string
		multiplier int
	)

	switch {
	case strings.HasSuffix(token, "hour"):
		digits, multiplier = strings.TrimSuffix(token, "hour"), 60
	case strings.HasSuffix(token, "min"):
		digits, multiplier = strings.TrimSuffix(token, "min"), 1
	default:
		return 0, apperrors.ErrInvalidInterval
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 || n > MaxIntervalMinutes/multiplier || strings.HasPrefix(digits, "+") {
		return 0, apperrors.ErrInvalidInterval
	}

	return n * multiplier, nil
}
