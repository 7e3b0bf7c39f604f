// Package caldate centralises date normalisation. Every comparison between
// calendar dates goes through YYYY-MM-DD keys built here, so a time-of-day
// component or a foreign UTC offset can never shift a record onto a
// neighbouring day.
package caldate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Layout is the canonical date key layout.
const Layout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("caldate: invalid date")
	ErrInvalidClock = errors.New("caldate: invalid HH:MM time")
)

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Key returns the YYYY-MM-DD key of t in its own location.
func Key(t time.Time) string {
	return t.Format(Layout)
}

// NormalizeKey strips any time-of-day suffix from a date string and checks
// that the remaining prefix is a valid date. "2025-02-03T00:00:00.000Z" and
// "2025-02-03" both yield "2025-02-03".
func NormalizeKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(Layout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	prefix := s[:len(Layout)]
	if _, err := time.Parse(Layout, prefix); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return prefix, nil
}

// ParseDate parses a date string (time-of-day ignored) into local midnight.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	key, err := NormalizeKey(s)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseTimestamp parses a date or date-time string. Zoned timestamps are
// converted into loc; unzoned ones are interpreted in loc. dateOnly is true
// when the input carried no time-of-day.
func ParseTimestamp(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if len(s) == len(Layout) {
		t, err = time.ParseInLocation(Layout, s, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		return t, true, nil
	}
	for _, layout := range timestampLayouts {
		parsed, perr := time.ParseInLocation(layout, s, loc)
		if perr == nil {
			return parsed.In(loc), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday midnight on or before t.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

// DaysBetween returns the number of calendar days from a to b, ignoring
// time-of-day and DST transitions.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Days enumerates every day from from to to inclusive, as local midnights.
// An inverted range yields nil.
func Days(from, to time.Time) []time.Time {
	start := StartOfDay(from)
	end := StartOfDay(to)
	if end.Before(start) {
		return nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		// Unreachable for DAILY with a valid start; fall back to a plain loop.
		var out []time.Time
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			out = append(out, d)
		}
		return out
	}
	return r.All()
}

// WeekdayName returns the long English day name ("Monday").
func WeekdayName(t time.Time) string {
	return t.Weekday().String()
}

// ParseWeekday matches a long or three-letter day name, trimmed and
// case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// SameWeekday compares a stored day-of-week string against a date's weekday.
func SameWeekday(stored string, d time.Weekday) bool {
	w, ok := ParseWeekday(stored)
	return ok && w == d
}

// ParseClock parses "HH:MM" (seconds suffix tolerated) into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, herr := strconv.Atoi(parts[0])
	minute, merr := strconv.Atoi(parts[1])
	if herr != nil || merr != nil || hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if hour == 24 && minute != 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

// At places an HH:MM wall-clock time on the given day. "24:00" maps to the
// following midnight.
func At(day time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), nil
}
