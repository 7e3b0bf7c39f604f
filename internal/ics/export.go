package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"plancal/internal/aggregate"
	"plancal/internal/caldate"
	"plancal/internal/model"
)

const productID = "-//plancal//schedule export//EN"

// ExportOptions names the exported calendar.
type ExportOptions struct {
	Name string
	// Location resolves the span dates of multi-day units. If nil,
	// time.Local is used.
	Location *time.Location
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

// Export renders aggregated days as a VCALENDAR. A multi-day unit that
// appears on several days is emitted once, spanning its full range.
func Export(days []aggregate.Day, opts ExportOptions) string {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	seen := make(map[string]bool)
	for _, d := range days {
		for _, u := range d.Units() {
			uid, spanStart, spanEnd := exportSource(u)
			if seen[uid] {
				continue
			}
			seen[uid] = true

			ev := cal.AddEvent(uid + "@plancal")
			ev.SetDtStampTime(opts.Now.UTC())
			ev.SetSummary(u.Title)
			ev.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(u.Kind)))

			switch {
			case u.Event != nil && u.Event.IsMultiDay && u.Event.SourceStart != nil:
				// Timed events listed in the all-day lane keep their clock times.
				ev.SetStartAt(*u.Event.SourceStart)
				ev.SetEndAt(*u.Event.SourceEnd)
			case u.AllDay:
				start, serr := caldate.ParseDate(spanStart, opts.Location)
				end, eerr := caldate.ParseDate(spanEnd, opts.Location)
				if serr != nil || eerr != nil {
					start, end = caldate.StartOfDay(u.Start), caldate.StartOfDay(u.Start)
				}
				ev.SetAllDayStartAt(start)
				// DTEND is exclusive for date values.
				ev.SetAllDayEndAt(end.AddDate(0, 0, 1))
			default:
				ev.SetStartAt(u.Start)
				ev.SetEndAt(u.End)
			}

			switch {
			case u.Event != nil:
				if u.Event.Location != "" {
					ev.SetLocation(u.Event.Location)
				}
				if u.Event.Description != "" {
					ev.SetDescription(u.Event.Description)
				}
			case u.Activity != nil:
				if u.Activity.Location != "" {
					ev.SetLocation(u.Activity.Location)
				}
				if u.Activity.Description != "" {
					ev.SetDescription(u.Activity.Description)
				}
			case u.Lesson != nil:
				if u.Lesson.Room != "" {
					ev.SetLocation(u.Lesson.Room)
				}
				if u.Lesson.LessonPlan != "" {
					ev.SetDescription(u.Lesson.LessonPlan)
				}
			}
		}
	}

	return cal.Serialize()
}

// exportSource returns a stable UID and the inclusive date span for u.
// Per-day IDs of multi-day units collapse onto their source record.
func exportSource(u model.Unit) (uid, spanStart, spanEnd string) {
	switch {
	case u.Event != nil && u.Event.IsMultiDay:
		return "event-" + u.Event.EventID, u.Event.SpanStart, u.Event.SpanEnd
	case u.Holiday != nil && u.Holiday.IsMultiDay:
		return "holiday-" + u.Holiday.HolidayID, u.Holiday.SpanStart, u.Holiday.SpanEnd
	default:
		return u.ID, u.Date, u.Date
	}
}
