// Package materialize reconciles the recurring timetable template against
// concrete lessons, producing the effective occupant of each slot-occurrence
// in a date range.
package materialize

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"plancal/internal/caldate"
	"plancal/internal/cycle"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// unitNamespace seeds deterministic ids for synthesized units, so the same
// slot-occurrence always yields the same id across render passes.
var unitNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("plancal/unit"))

// Options controls how occupants are rendered.
type Options struct {
	// Preference orders placeholder titles and picks fallback colours.
	Preference model.ColorPreference
	// Location is the display timezone. If nil, time.Local is used.
	Location *time.Location
}

// Materializer holds an indexed, read-only view of one snapshot.
type Materializer struct {
	opts       Options
	resolver   *cycle.Resolver
	catalog    Catalog
	slots      map[string]model.TimetableSlot
	entries    []model.TimetableEntry
	activities []model.TimetableActivity

	// resolved maps a date key to the slot ids holding a concrete lesson.
	resolved map[string]map[string]bool
}

// New indexes snap. resolver must be built from the same snapshot.
func New(snap *model.Snapshot, resolver *cycle.Resolver, catalog Catalog, opts Options) *Materializer {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	m := &Materializer{
		opts:     opts,
		resolver: resolver,
		catalog:  catalog,
		slots:    make(map[string]model.TimetableSlot, len(snap.Slots)),
		resolved: make(map[string]map[string]bool),
	}
	for _, s := range snap.Slots {
		m.slots[s.ID] = s
	}

	m.entries = append([]model.TimetableEntry(nil), snap.Entries...)
	sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].ID < m.entries[j].ID })
	m.activities = append([]model.TimetableActivity(nil), snap.Activities...)
	sort.SliceStable(m.activities, func(i, j int) bool { return m.activities[i].ID < m.activities[j].ID })

	for _, l := range snap.Lessons {
		key, err := caldate.NormalizeKey(l.Date)
		if err != nil {
			appLog.Debug("materialize: lesson date invalid; ignored for slot resolution", "lesson_id", l.ID, "date", l.Date)
			continue
		}
		if m.resolved[key] == nil {
			m.resolved[key] = make(map[string]bool)
		}
		m.resolved[key][l.TimetableSlotID] = true
	}
	return m
}

// Range materializes every day from from to to inclusive.
func (m *Materializer) Range(from, to time.Time) []model.Unit {
	var out []model.Unit
	for _, day := range caldate.Days(from.In(m.opts.Location), to.In(m.opts.Location)) {
		out = append(out, m.Date(day)...)
	}
	return out
}

// Date returns the activities and placeholder lessons occupying slots on
// day, ordered by start time. Slots with a concrete lesson yield nothing.
func (m *Materializer) Date(day time.Time) []model.Unit {
	day = caldate.StartOfDay(day.In(m.opts.Location))
	week, ok := m.resolver.WeekNumber(day)
	if !ok {
		return nil
	}
	key := caldate.Key(day)
	weekday := day.Weekday()
	resolved := m.resolved[key]
	claimed := make(map[string]bool)

	var out []model.Unit

	for _, a := range m.activities {
		if !m.matches(a.DayOfWeek, a.WeekNumber, weekday, week) {
			continue
		}
		slot, start, end, ok := m.slotOccurrence(a.TimetableSlotID, day, week)
		if !ok || resolved[slot.ID] || claimed[slot.ID] {
			continue
		}
		claimed[slot.ID] = true

		title := strings.TrimSpace(a.Title)
		if title == "" {
			title = a.ActivityType
		}
		out = append(out, model.Unit{
			ID:    occurrenceID("activity", a.ID, key),
			Kind:  model.KindActivity,
			Title: title,
			Color: a.Color,
			Date:  key,
			Start: start,
			End:   end,
			Activity: &model.ActivityInfo{
				ActivityID:   a.ID,
				ActivityType: a.ActivityType,
				SlotID:       slot.ID,
				Location:     a.Location,
				Description:  a.Description,
			},
		})
	}

	for _, e := range m.entries {
		if !m.matches(e.DayOfWeek, e.WeekNumber, weekday, week) {
			continue
		}
		slot, start, end, ok := m.slotOccurrence(e.TimetableSlotID, day, week)
		if !ok || resolved[slot.ID] || claimed[slot.ID] {
			continue
		}
		// An unassigned slot is invisible.
		if e.ClassID == "" && e.SubjectID == "" {
			continue
		}
		claimed[slot.ID] = true

		title := m.catalog.Title(e.ClassID, e.SubjectID, m.opts.Preference)
		if title == "" {
			title = slot.Label
		}
		out = append(out, model.Unit{
			ID:    occurrenceID("placeholder", e.ID, key),
			Kind:  model.KindLesson,
			Title: title,
			Color: m.catalog.Color(e.ClassID, e.SubjectID, m.opts.Preference),
			Date:  key,
			Start: start,
			End:   end,
			Lesson: &model.LessonInfo{
				ClassID:      e.ClassID,
				ClassName:    m.catalog.ClassName(e.ClassID),
				SubjectID:    e.SubjectID,
				SubjectName:  m.catalog.SubjectName(e.SubjectID),
				Room:         e.Room,
				SlotIDs:      []string{slot.ID},
				IsUnfinished: true,
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// matches compares a stored (dayOfWeek, weekNumber) against the resolved
// pair. week is always 1 or 2 here; a stored 0 never matches.
func (m *Materializer) matches(storedDay string, storedWeek int, weekday time.Weekday, week int) bool {
	if storedWeek == 0 || storedWeek != week {
		return false
	}
	return caldate.SameWeekday(storedDay, weekday)
}

// slotOccurrence positions slotID on day. ok is false for unknown slots,
// slots pinned to the other cycle week, or unparseable times.
func (m *Materializer) slotOccurrence(slotID string, day time.Time, week int) (model.TimetableSlot, time.Time, time.Time, bool) {
	slot, start, end, ok := m.SlotRange(slotID, day)
	if !ok || (slot.WeekNumber != 0 && slot.WeekNumber != week) {
		return slot, time.Time{}, time.Time{}, false
	}
	return slot, start, end, true
}

// SlotRange positions a slot's time-of-day on day. The aggregator places
// concrete lessons through it too.
func (m *Materializer) SlotRange(slotID string, day time.Time) (model.TimetableSlot, time.Time, time.Time, bool) {
	slot, found := m.slots[slotID]
	if !found {
		return slot, time.Time{}, time.Time{}, false
	}
	start, err := caldate.At(day, slot.StartTime)
	if err != nil {
		appLog.Debug("materialize: slot start time invalid", "slot_id", slot.ID, "start_time", slot.StartTime)
		return slot, time.Time{}, time.Time{}, false
	}
	end, err := caldate.At(day, slot.EndTime)
	if err != nil {
		appLog.Debug("materialize: slot end time invalid", "slot_id", slot.ID, "end_time", slot.EndTime)
		return slot, time.Time{}, time.Time{}, false
	}
	return slot, start, end, true
}

func occurrenceID(kind, id, dateKey string) string {
	return uuid.NewSHA1(unitNamespace, []byte(kind+"|"+id+"|"+dateKey)).String()
}
