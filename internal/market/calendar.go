// Package market knows when the US equity market is trading.
package market

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultTimezone = "America/New_York"
	DefaultOpen     = "09:30"
	DefaultClose    = "16:00"

	clockLayout = "15:04"
)

// Calendar is a weekday trading window in a fixed timezone. Holidays are not modelled.
type Calendar struct {
	loc   *time.Location
	open  time.Duration
	close time.Duration
}

// NewCalendar parses the window; open and close use the "15:04" layout.
func NewCalendar(timezone, open, close string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load market timezone %q: %w", timezone, err)
	}

	openAt, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("parse market open: %w", err)
	}

	closeAt, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("parse market close: %w", err)
	}

	if closeAt <= openAt {
		return nil, fmt.Errorf("market close %s must be after open %s", close, open)
	}

	return &Calendar{loc: loc, open: openAt, close: closeAt}, nil
}

// IsOpen reports whether t falls on a weekday within [open, close) in the market timezone.
func (c *Calendar) IsOpen(t time.Time) bool {
	local := t.In(c.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	clock := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second + time.Duration(local.Nanosecond())

	return clock >= c.open && clock < c.close
}

// Describe renders the window for user-facing hints, e.g. "Mon–Fri, 9:30AM–4PM ET".
func (c *Calendar) Describe() string {
	return fmt.Sprintf("Mon–Fri, %s–%s %s", formatClock(c.open), formatClock(c.close), zoneAbbrev(c.loc))
}

// Location returns the market timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

func parseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, err
	}

	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

func formatClock(offset time.Duration) string {
	at := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)
	if at.Minute() == 0 {
		return at.Format("3PM")
	}
	return at.Format("3:04PM")
}

func zoneAbbrev(loc *time.Location) string {
	switch loc.String() {
	case "America/New_York", "US/Eastern":
		return "ET"
	case "America/Chicago", "US/Central":
		return "CT"
	}

	// pick a winter date so the abbreviation is stable across DST
	name, _ := time.Date(2000, 1, 1, 12, 0, 0, 0, loc).Zone()
	if strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
		return loc.String()
	}
	return name
}
