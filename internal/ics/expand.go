package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"plancal/internal/caldate"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the timezone occurrences are converted into.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the window, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps one UID's expansion. Zero uses the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a feed event.
type Occurrence struct {
	Source      Source
	UID         string
	InstanceKey string

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time // exclusive
	AllDay bool
}

// ExpandResult holds expanded occurrences already converted into snapshot
// records, split by the kind of their source.
type ExpandResult struct {
	Events   []model.CalendarEvent
	Holidays []model.Holiday
	// TruncatedEvents records UIDs that hit MaxOccurrencesPerEvent.
	TruncatedEvents []string
}

// Expand turns parsed VEVENTs into concrete snapshot records within the
// configured window. Events from KindHoliday sources become model.Holiday,
// everything else model.CalendarEvent.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	occs, truncated, err := ExpandOccurrences(events, cfg)
	if err != nil {
		return result, err
	}
	result.TruncatedEvents = truncated

	for _, occ := range occs {
		if occ.Source.Kind == KindHoliday {
			result.Holidays = append(result.Holidays, occ.Holiday())
			continue
		}
		result.Events = append(result.Events, occ.Event())
	}
	return result, nil
}

// ExpandOccurrences expands single events, RRULE recurrences, EXDATE
// exclusions and RECURRENCE-ID overrides. Output is ordered by start, then
// UID, so repeated imports produce identical snapshots.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, []string, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	uids := make([]string, 0)
	for _, ev := range events {
		key := ev.Source.ID + "\x00" + ev.UID
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[key] = append(overridesByUID[key], ev)
			continue
		}
		if _, ok := baseByUID[key]; !ok {
			uids = append(uids, key)
		}
		baseByUID[key] = append(baseByUID[key], ev)
	}
	sort.Strings(uids)

	var truncated []string
	out := make([]Occurrence, 0)
	for _, key := range uids {
		hit := false
		for _, ev := range baseByUID[key] {
			occ, capped := expandEvent(ev, overridesByUID[key], cfg)
			hit = hit || capped
			out = append(out, occ...)
		}
		if hit {
			uid := baseByUID[key][0].UID
			truncated = append(truncated, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].UID < out[j].UID
	})
	return out, truncated, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		return []Occurrence{makeOccurrence(o, o.Start, o.End, ev.Start, cfg.DisplayLocation)}
	}
	return []Occurrence{makeOccurrence(ev, ev.Start, ev.End, ev.Start, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	// Widen the lower bound so instances already running at RangeStart
	// are kept.
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())
	starts := set.Between(from, to, true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		end := start.Add(dur)
		if ev.AllDay {
			days := int(dur.Hours()/24 + 0.5)
			if days < 1 {
				days = 1
			}
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, days)
		}
		if o, ok := findOverrideForStart(overrides, start); ok {
			out = append(out, makeOccurrence(o, o.Start, o.End, start, cfg.DisplayLocation))
			continue
		}
		out = append(out, makeOccurrence(ev, start, end, start, cfg.DisplayLocation))
	}
	return out, hitCap
}

// findOverrideForStart finds the override whose RECURRENCE-ID equals start.
// When a feed repeats an override, the highest SEQUENCE wins.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	var best ParsedEvent
	found := false
	for _, ov := range overrides {
		if ov.Recurrence == nil || !ov.Recurrence.Equal(start) {
			continue
		}
		if !found || ov.Seq > best.Seq {
			best, found = ov, true
		}
	}
	return best, found
}

// makeOccurrence keys the instance by its original (pre-override) start so
// a moved instance keeps a stable ID.
func makeOccurrence(ev ParsedEvent, start, end, original time.Time, loc *time.Location) Occurrence {
	occ := Occurrence{
		Source:      ev.Source,
		UID:         ev.UID,
		InstanceKey: original.UTC().Format("20060102T150405Z"),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start.In(loc),
		End:         end.In(loc),
	}
	if ev.AllDay {
		// Keep the calendar date; shifting zones must not move it.
		occ.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		occ.End = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	}
	return occ
}

// ID is unique across sources and instances.
func (o Occurrence) ID() string {
	return o.Source.ID + ":" + o.UID + ":" + o.InstanceKey
}

// lastDay converts the exclusive all-day end into an inclusive date.
func (o Occurrence) lastDay() time.Time {
	last := o.End.AddDate(0, 0, -1)
	if last.Before(o.Start) {
		return o.Start
	}
	return last
}

// Event converts the occurrence into an ad-hoc calendar event.
func (o Occurrence) Event() model.CalendarEvent {
	ev := model.CalendarEvent{
		ID:          o.ID(),
		Title:       o.Summary,
		AllDay:      o.AllDay,
		Color:       o.Source.Color,
		Location:    o.Location,
		Description: o.Description,
	}
	if o.AllDay {
		ev.StartTime = caldate.Key(o.Start)
		ev.EndTime = caldate.Key(o.lastDay())
		return ev
	}
	ev.StartTime = o.Start.Format(time.RFC3339)
	ev.EndTime = o.End.Format(time.RFC3339)
	return ev
}

// Holiday converts the occurrence into an inclusive holiday range. Timed
// entries in a holiday feed cover every date they touch.
func (o Occurrence) Holiday() model.Holiday {
	last := o.lastDay()
	if !o.AllDay {
		last = o.End
		if o.End.After(o.Start) && o.End.Equal(caldate.StartOfDay(o.End)) {
			last = o.End.AddDate(0, 0, -1)
		}
	}
	return model.Holiday{
		ID:        o.ID(),
		StartDate: caldate.Key(o.Start),
		EndDate:   caldate.Key(last),
		Name:      o.Summary,
		Color:     o.Source.Color,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
