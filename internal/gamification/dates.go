package gamification

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day format of persisted dates.
const DayLayout = "2006-01-02"

// DayKey formats t as the calendar day it falls on in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay parses a persisted day string.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	return t, nil
}

// DaysBetween returns the whole calendar days from `from` to `to`; negative when `to` is
// earlier. Both are parsed as UTC midnights so daylight saving never skews the result.
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDay(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDay(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}
