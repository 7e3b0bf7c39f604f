package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "plancal/internal/log"
)

// ParsedEvent is a normalized VEVENT before recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
	IsOverride bool
}

// ParseICS parses one feed body. Malformed VEVENTs are logged and skipped;
// only an unreadable calendar is an error.
func ParseICS(src Source, body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "url", redactURL(src.URL), "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "kind", src.Kind, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil || end.Before(start) {
		// No DTEND: a date value lasts one day, a date-time is instantaneous.
		end = start
		if out.AllDay {
			end = start.AddDate(0, 0, 1)
		}
	}
	if out.AllDay {
		// Date values carry no zone; pin them to the display zone so the
		// date key never drifts.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	}
	out.Start = start
	out.End = end

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, loc); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// isDateValue reports whether a DTSTART holds a DATE rather than DATE-TIME.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms used by EXDATE
// and RECURRENCE-ID.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
