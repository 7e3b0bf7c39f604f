// Package cycle resolves which week of the timetable cycle a date falls in.
package cycle

import (
	"time"

	"plancal/internal/caldate"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// Resolver answers week-number queries for one academic year and holiday
// list. It parses both once; it is read-only afterwards and safe for
// concurrent use.
type Resolver struct {
	anchor      time.Time // Monday of the academic start week
	start       time.Time
	end         time.Time // zero when open-ended
	cycleLength int
	skipHoliday bool
	valid       bool

	holidays []dayRange
}

type dayRange struct {
	from, to string // inclusive YYYY-MM-DD keys
}

// NewResolver builds a Resolver. An unparseable academic start date yields a
// Resolver that returns (0, false) for every date.
func NewResolver(year model.AcademicYear, holidays []model.Holiday, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	r := &Resolver{
		cycleLength: year.CycleLength,
		skipHoliday: year.SkipHolidayWeeks,
	}
	if r.cycleLength != 2 {
		r.cycleLength = 1
	}

	start, err := caldate.ParseDate(year.StartDate, loc)
	if err != nil {
		appLog.Warn("cycle: academic year start date invalid; week cycle disabled", "start_date", year.StartDate)
		return r
	}
	r.start = start
	r.anchor = caldate.WeekStart(start)
	r.valid = true

	if year.EndDate != "" {
		if end, err := caldate.ParseDate(year.EndDate, loc); err == nil {
			r.end = end
		} else {
			appLog.Warn("cycle: academic year end date invalid; treating year as open-ended", "end_date", year.EndDate)
		}
	}

	for _, h := range holidays {
		from, ferr := caldate.NormalizeKey(h.StartDate)
		to, terr := caldate.NormalizeKey(h.EndDate)
		if ferr != nil || terr != nil {
			continue
		}
		if to < from {
			from, to = to, from
		}
		r.holidays = append(r.holidays, dayRange{from: from, to: to})
	}
	return r
}

// WeekNumber returns the active cycle week (1 or 2) for date. ok is false
// when the date lies outside the academic year or, with SkipHolidayWeeks,
// inside a week whose every weekday is a holiday. Callers must treat
// ok == false as "matches nothing", never as week 1.
func (r *Resolver) WeekNumber(date time.Time) (week int, ok bool) {
	if !r.valid {
		return 0, false
	}
	day := caldate.StartOfDay(date)
	if caldate.Key(day) < caldate.Key(r.start) {
		return 0, false
	}
	if !r.end.IsZero() && caldate.Key(day) > caldate.Key(r.end) {
		return 0, false
	}
	if r.skipHoliday && r.IsHolidayWeek(day) {
		return 0, false
	}

	elapsedWeeks := caldate.DaysBetween(r.anchor, caldate.WeekStart(day)) / 7
	return elapsedWeeks%r.cycleLength + 1, true
}

// IsHolidayWeek reports whether every weekday (Monday to Friday) of date's
// week falls inside some holiday range.
func (r *Resolver) IsHolidayWeek(date time.Time) bool {
	if len(r.holidays) == 0 {
		return false
	}
	monday := caldate.WeekStart(date)
	for i := 0; i < 5; i++ {
		if !r.IsHoliday(monday.AddDate(0, 0, i)) {
			return false
		}
	}
	return true
}

// IsHoliday reports whether date falls inside any holiday range.
func (r *Resolver) IsHoliday(date time.Time) bool {
	key := caldate.Key(date)
	for _, h := range r.holidays {
		if key >= h.from && key <= h.to {
			return true
		}
	}
	return false
}
