// Package aggregate merges lessons, ad-hoc events, holidays and the
// materialized timetable into per-day display unit lists.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"plancal/internal/caldate"
	"plancal/internal/cycle"
	appLog "plancal/internal/log"
	"plancal/internal/materialize"
	"plancal/internal/model"
)

// Options controls aggregation.
type Options struct {
	Preference model.ColorPreference
	// Location is the display timezone. If nil, time.Local is used.
	Location *time.Location
}

// Day is the complete, ordered content of one calendar day.
type Day struct {
	Date string    `json:"date"` // YYYY-MM-DD
	Time time.Time `json:"-"`

	// WeekNumber is nil when the date is outside the cycle (before the
	// academic year, after it, or in a skipped holiday week).
	WeekNumber  *int `json:"week_number,omitempty"`
	HolidayWeek bool `json:"holiday_week"`

	// AllDay holds holidays, all-day events and multi-day bars, by title.
	AllDay []model.Unit `json:"all_day"`
	// Timed holds everything else, by start time.
	Timed []model.Unit `json:"timed"`
}

// Units returns AllDay followed by Timed.
func (d Day) Units() []model.Unit {
	out := make([]model.Unit, 0, len(d.AllDay)+len(d.Timed))
	out = append(out, d.AllDay...)
	return append(out, d.Timed...)
}

// Aggregator holds one parsed snapshot. It is immutable after New and safe
// for concurrent use.
type Aggregator struct {
	opts     Options
	resolver *cycle.Resolver
	catalog  materialize.Catalog
	mat      *materialize.Materializer

	lessonsByDate map[string][]model.Lesson
	events        []spanEvent
	holidays      []spanHoliday
}

// spanEvent is an ad-hoc event with parsed bounds.
type spanEvent struct {
	src              model.CalendarEvent
	start, end       time.Time
	startKey, endKey string // inclusive
}

type spanHoliday struct {
	src              model.Holiday
	startKey, endKey string // inclusive
}

// New parses snap once. Malformed event and holiday dates are logged and
// the offending record skipped; nothing here fails.
func New(snap *model.Snapshot, opts Options) *Aggregator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Preference == "" {
		opts.Preference = model.PreferSubject
	}

	resolver := cycle.NewResolver(snap.AcademicYear, snap.Holidays, opts.Location)
	catalog := materialize.NewCatalog(snap.Classes, snap.Subjects)
	a := &Aggregator{
		opts:     opts,
		resolver: resolver,
		catalog:  catalog,
		mat: materialize.New(snap, resolver, catalog, materialize.Options{
			Preference: opts.Preference,
			Location:   opts.Location,
		}),
		lessonsByDate: make(map[string][]model.Lesson),
	}

	for _, l := range snap.Lessons {
		key, err := caldate.NormalizeKey(l.Date)
		if err != nil {
			appLog.Warn("aggregate: skipping lesson with invalid date", "lesson_id", l.ID, "date", l.Date)
			continue
		}
		a.lessonsByDate[key] = append(a.lessonsByDate[key], l)
	}

	for _, ev := range snap.Events {
		se, ok := parseEvent(ev, opts.Location)
		if ok {
			a.events = append(a.events, se)
		}
	}

	for _, h := range snap.Holidays {
		from, ferr := caldate.NormalizeKey(h.StartDate)
		to, terr := caldate.NormalizeKey(h.EndDate)
		if ferr != nil || terr != nil {
			appLog.Warn("aggregate: skipping holiday with invalid dates", "holiday_id", h.ID, "start_date", h.StartDate, "end_date", h.EndDate)
			continue
		}
		if to < from {
			appLog.Warn("aggregate: holiday ends before it starts; swapping", "holiday_id", h.ID, "start_date", h.StartDate, "end_date", h.EndDate)
			from, to = to, from
		}
		a.holidays = append(a.holidays, spanHoliday{src: h, startKey: from, endKey: to})
	}

	return a
}

func parseEvent(ev model.CalendarEvent, loc *time.Location) (spanEvent, bool) {
	start, _, err := caldate.ParseTimestamp(ev.StartTime, loc)
	if err != nil {
		appLog.Warn("aggregate: skipping event with invalid start", "event_id", ev.ID, "start_time", ev.StartTime)
		return spanEvent{}, false
	}

	end := start
	endDateOnly := true
	if strings.TrimSpace(ev.EndTime) != "" {
		end, endDateOnly, err = caldate.ParseTimestamp(ev.EndTime, loc)
		if err != nil {
			appLog.Warn("aggregate: skipping event with invalid end", "event_id", ev.ID, "end_time", ev.EndTime)
			return spanEvent{}, false
		}
	}
	if end.Before(start) {
		end = start
	}

	endKey := caldate.Key(end)
	// A timed event ending exactly at midnight does not touch that day.
	if !endDateOnly && end.After(start) && end.Equal(caldate.StartOfDay(end)) {
		endKey = caldate.Key(end.AddDate(0, 0, -1))
	}
	return spanEvent{
		src:      ev,
		start:    start,
		end:      end,
		startKey: caldate.Key(start),
		endKey:   endKey,
	}, true
}

// Range aggregates every day from from to to inclusive.
func (a *Aggregator) Range(from, to time.Time) []Day {
	days := caldate.Days(from.In(a.opts.Location), to.In(a.opts.Location))
	out := make([]Day, 0, len(days))
	for _, d := range days {
		out = append(out, a.Day(d))
	}
	return out
}

// Day aggregates a single date.
func (a *Aggregator) Day(date time.Time) Day {
	day := caldate.StartOfDay(date.In(a.opts.Location))
	key := caldate.Key(day)
	out := Day{
		Date:        key,
		Time:        day,
		HolidayWeek: a.resolver.IsHolidayWeek(day),
		AllDay:      []model.Unit{},
		Timed:       []model.Unit{},
	}
	if week, ok := a.resolver.WeekNumber(day); ok {
		out.WeekNumber = &week
	}

	// Placeholders and activities. A null week (including skipped holiday
	// weeks) already yields nothing here.
	out.Timed = append(out.Timed, a.mat.Date(day)...)
	out.Timed = append(out.Timed, a.lessonGroups(day, key)...)

	for _, ev := range a.events {
		if key < ev.startKey || key > ev.endKey {
			continue
		}
		u := a.eventUnit(ev, day, key)
		if u.AllDay {
			out.AllDay = append(out.AllDay, u)
		} else {
			out.Timed = append(out.Timed, u)
		}
	}

	for _, h := range a.holidays {
		if key < h.startKey || key > h.endKey {
			continue
		}
		out.AllDay = append(out.AllDay, holidayUnit(h, day, key))
	}

	SortTimed(out.Timed)
	SortAllDay(out.AllDay)
	return out
}

func (a *Aggregator) eventUnit(ev spanEvent, day time.Time, key string) model.Unit {
	nextDay := day.AddDate(0, 0, 1)
	multiDay := ev.startKey != ev.endKey

	u := model.Unit{
		ID:     "event:" + ev.src.ID + ":" + key,
		Kind:   model.KindEvent,
		Title:  ev.src.Title,
		Color:  ev.src.Color,
		Date:   key,
		AllDay: ev.src.AllDay || multiDay,
		Event: &model.EventInfo{
			EventID:     ev.src.ID,
			Location:    ev.src.Location,
			Description: ev.src.Description,
			Span: model.Span{
				IsMultiDay: multiDay,
				SpanStart:  ev.startKey,
				SpanEnd:    ev.endKey,
			},
		},
	}
	if ev.src.AllDay {
		u.Start, u.End = day, nextDay
		return u
	}
	srcStart, srcEnd := ev.start, ev.end
	u.Event.SourceStart, u.Event.SourceEnd = &srcStart, &srcEnd
	u.Start, u.End = ev.start, ev.end
	if u.Start.Before(day) {
		u.Start = day
	}
	if u.End.After(nextDay) {
		u.End = nextDay
	}
	return u
}

func holidayUnit(h spanHoliday, day time.Time, key string) model.Unit {
	return model.Unit{
		ID:     "holiday:" + h.src.ID + ":" + key,
		Kind:   model.KindHoliday,
		Title:  h.src.Name,
		Color:  h.src.Color,
		Date:   key,
		Start:  day,
		End:    day.AddDate(0, 0, 1),
		AllDay: true,
		Holiday: &model.HolidayInfo{
			HolidayID: h.src.ID,
			Span: model.Span{
				IsMultiDay: h.startKey != h.endKey,
				SpanStart:  h.startKey,
				SpanEnd:    h.endKey,
			},
		},
	}
}

// SortTimed orders units by start, then end, lessons first, then id.
func SortTimed(units []model.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.IsLesson() != b.IsLesson() {
			return a.IsLesson()
		}
		return a.ID < b.ID
	})
}

// SortAllDay orders units alphabetically by title (case-insensitive), then id.
func SortAllDay(units []model.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		ti, tj := strings.ToLower(units[i].Title), strings.ToLower(units[j].Title)
		if ti != tj {
			return ti < tj
		}
		return units[i].ID < units[j].ID
	})
}
