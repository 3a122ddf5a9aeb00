package ledger

import (
	"fmt"
	"time"
)

// PeriodType selects the aggregate a leaderboard is ranked on.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodAllTime PeriodType = "all_time"
)

const dayLayout = "2006-01-02"

// ParsePeriod accepts daily, weekly and all_time. An empty value means all_time.
func ParsePeriod(s string) (PeriodType, error) {
	switch PeriodType(s) {
	case "", PeriodAllTime:
		return PeriodAllTime, nil
	case PeriodDaily, PeriodWeekly:
		return PeriodType(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Bucketed reports whether the period is backed by leaderboard buckets.
func (p PeriodType) Bucketed() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

// Calendar derives period keys in a fixed reference timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the IANA zone name. An empty name means UTC.
func NewCalendar(tz string) (*Calendar, error) {
	if tz == "" {
		return &Calendar{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return &Calendar{loc: loc}, nil
}

// MustCalendar is NewCalendar for static zone names.
func MustCalendar(tz string) *Calendar {
	c, err := NewCalendar(tz)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Calendar) Location() *time.Location { return c.loc }

// DayKey is the calendar date of t in the reference zone, YYYY-MM-DD.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format(dayLayout)
}

// WeekKey is the ISO-8601 week of t in the reference zone, YYYY-Www.
func (c *Calendar) WeekKey(t time.Time) string {
	year, week := t.In(c.loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Key returns the bucket key of period p containing t. All-time has no key.
func (c *Calendar) Key(p PeriodType, t time.Time) string {
	switch p {
	case PeriodDaily:
		return c.DayKey(t)
	case PeriodWeekly:
		return c.WeekKey(t)
	}
	return ""
}

// StartOfDay is local midnight of the day containing t.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// ParseDay parses a YYYY-MM-DD key as local midnight.
func (c *Calendar) ParseDay(key string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, key, c.loc)
}

// DaysAgo returns the day key n days before the day containing t.
func (c *Calendar) DaysAgo(t time.Time, n int) string {
	return c.StartOfDay(t).AddDate(0, 0, -n).Format(dayLayout)
}
