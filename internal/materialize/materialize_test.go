package materialize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/cycle"
	"plancal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseSnapshot() *model.Snapshot {
	return &model.Snapshot{
		AcademicYear: model.AcademicYear{StartDate: "2025-01-06", CycleLength: 2},
		Slots: []model.TimetableSlot{
			{ID: "s1", StartTime: "09:00", EndTime: "10:00", WeekNumber: 1, Label: "P1"},
			{ID: "s2", StartTime: "10:00", EndTime: "11:00", Label: "P2"},
		},
		Entries: []model.TimetableEntry{
			{ID: "e1", DayOfWeek: "Monday", WeekNumber: 1, TimetableSlotID: "s1", ClassID: "1"},
		},
		Classes:  []model.Class{{ID: "1", Name: "7B", Color: "#3B82F6"}},
		Subjects: []model.Subject{{ID: "2", Name: "Maths", Color: "#FCD34D"}},
	}
}

func newMaterializer(snap *model.Snapshot, pref model.ColorPreference) *Materializer {
	resolver := cycle.NewResolver(snap.AcademicYear, snap.Holidays, time.UTC)
	catalog := NewCatalog(snap.Classes, snap.Subjects)
	return New(snap, resolver, catalog, Options{Preference: pref, Location: time.UTC})
}

func TestPlaceholderFollowsWeekCycle(t *testing.T) {
	m := newMaterializer(baseSnapshot(), model.PreferSubject)

	t.Run("Week 1", func(t *testing.T) {
		units := m.Date(day(2025, 1, 6))
		require.Len(t, units, 1)
		u := units[0]
		assert.Equal(t, model.KindLesson, u.Kind)
		require.NotNil(t, u.Lesson)
		assert.True(t, u.Lesson.IsUnfinished)
		assert.Equal(t, "7B", u.Title)
		assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), u.Start)
		assert.Equal(t, time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC), u.End)
		assert.Equal(t, "2025-01-06", u.Date)
	})

	t.Run("Week 2 No Match", func(t *testing.T) {
		assert.Empty(t, m.Date(day(2025, 1, 13)))
	})

	t.Run("Week 1 Again", func(t *testing.T) {
		units := m.Date(day(2025, 1, 20))
		require.Len(t, units, 1)
		assert.Equal(t, time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC), units[0].Start)
	})

	t.Run("Before Academic Year", func(t *testing.T) {
		assert.Empty(t, m.Date(day(2024, 12, 30)))
	})

	t.Run("Range", func(t *testing.T) {
		units := m.Range(day(2025, 1, 6), day(2025, 1, 26))
		require.Len(t, units, 2)
		assert.Equal(t, "2025-01-06", units[0].Date)
		assert.Equal(t, "2025-01-20", units[1].Date)
	})
}

func TestActivityTakesPrecedenceOverPlaceholder(t *testing.T) {
	snap := baseSnapshot()
	snap.Activities = []model.TimetableActivity{
		{ID: "a1", DayOfWeek: "monday ", WeekNumber: 1, TimetableSlotID: "s1", Title: "Staff meeting", ActivityType: "meeting", Color: "#10B981"},
	}
	m := newMaterializer(snap, model.PreferSubject)

	units := m.Date(day(2025, 1, 6))
	require.Len(t, units, 1)
	assert.Equal(t, model.KindActivity, units[0].Kind)
	assert.Equal(t, "Staff meeting", units[0].Title)
	require.NotNil(t, units[0].Activity)
	assert.Equal(t, "s1", units[0].Activity.SlotID)
	assert.Nil(t, units[0].Lesson)
}

func TestConcreteLessonSuppressesSlot(t *testing.T) {
	snap := baseSnapshot()
	snap.Activities = []model.TimetableActivity{
		{ID: "a1", DayOfWeek: "Monday", WeekNumber: 1, TimetableSlotID: "s1", Title: "Duty"},
	}
	snap.Lessons = []model.Lesson{
		{ID: "l1", Date: "2025-01-06T00:00:00.000Z", TimetableSlotID: "s1", ClassID: "1", Title: "Fractions"},
	}
	m := newMaterializer(snap, model.PreferSubject)

	assert.Empty(t, m.Date(day(2025, 1, 6)), "concrete lesson is the sole representative")
	assert.Len(t, m.Date(day(2025, 1, 20)), 1, "other dates are unaffected")
}

func TestEmptyAndDanglingEntries(t *testing.T) {
	snap := baseSnapshot()
	snap.Entries = []model.TimetableEntry{
		{ID: "e-empty", DayOfWeek: "Monday", WeekNumber: 1, TimetableSlotID: "s1"},
		{ID: "e-dangling", DayOfWeek: "Monday", WeekNumber: 1, TimetableSlotID: "missing", ClassID: "1"},
		{ID: "e-noweek", DayOfWeek: "Monday", WeekNumber: 0, TimetableSlotID: "s2", ClassID: "1"},
	}
	snap.Activities = []model.TimetableActivity{
		{ID: "a-dangling", DayOfWeek: "Monday", WeekNumber: 1, TimetableSlotID: "missing", Title: "Ghost"},
	}
	m := newMaterializer(snap, model.PreferSubject)

	assert.Empty(t, m.Date(day(2025, 1, 6)))
}

func TestSlotPinnedToOtherWeek(t *testing.T) {
	snap := baseSnapshot()
	// Entry claims week 2 but the slot only exists in week 1.
	snap.Entries = []model.TimetableEntry{
		{ID: "e2", DayOfWeek: "Monday", WeekNumber: 2, TimetableSlotID: "s1", ClassID: "1"},
		{ID: "e3", DayOfWeek: "Monday", WeekNumber: 2, TimetableSlotID: "s2", SubjectID: "2"},
	}
	m := newMaterializer(snap, model.PreferSubject)

	units := m.Date(day(2025, 1, 13))
	require.Len(t, units, 1)
	assert.Equal(t, "Maths", units[0].Title)
	assert.Equal(t, []string{"s2"}, units[0].Lesson.SlotIDs)
}

func TestTitleOrderAndColorPreference(t *testing.T) {
	snap := baseSnapshot()
	snap.Entries[0].SubjectID = "2"

	subjectFirst := newMaterializer(snap, model.PreferSubject).Date(day(2025, 1, 6))
	require.Len(t, subjectFirst, 1)
	assert.Equal(t, "Maths - 7B", subjectFirst[0].Title)
	assert.Equal(t, "#FCD34D", subjectFirst[0].Color)

	classFirst := newMaterializer(snap, model.PreferClass).Date(day(2025, 1, 6))
	require.Len(t, classFirst, 1)
	assert.Equal(t, "7B - Maths", classFirst[0].Title)
	assert.Equal(t, "#3B82F6", classFirst[0].Color)
}

func TestSkipHolidayWeekSuppressesSynthesis(t *testing.T) {
	snap := baseSnapshot()
	snap.AcademicYear.SkipHolidayWeeks = true
	snap.Holidays = []model.Holiday{{ID: "h", StartDate: "2025-01-20", EndDate: "2025-01-24", Name: "Break"}}
	m := newMaterializer(snap, model.PreferSubject)

	assert.Empty(t, m.Date(day(2025, 1, 20)))
}

func TestDeterministicIDs(t *testing.T) {
	a := newMaterializer(baseSnapshot(), model.PreferSubject).Date(day(2025, 1, 6))
	b := newMaterializer(baseSnapshot(), model.PreferSubject).Date(day(2025, 1, 6))
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ID, b[0].ID)

	c := newMaterializer(baseSnapshot(), model.PreferSubject).Date(day(2025, 1, 20))
	require.Len(t, c, 1)
	assert.NotEqual(t, a[0].ID, c[0].ID, "ids differ per date")
}

func TestCatalog(t *testing.T) {
	c := NewCatalog([]model.Class{{ID: "c", Name: "9A"}}, []model.Subject{{ID: "s", Name: "Art", Color: "#FF0000"}})
	assert.Equal(t, "Art", c.Title("", "s", model.PreferClass))
	assert.Equal(t, "9A", c.Title("c", "", model.PreferSubject))
	assert.Equal(t, "", c.Title("", "", model.PreferSubject))
	assert.Equal(t, "#FF0000", c.Color("c", "s", model.PreferClass), "falls back to the other colour")
}
