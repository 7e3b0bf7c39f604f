package model

import "time"

// Kind tags which source a Unit came from.
type Kind string

const (
	KindLesson   Kind = "lesson"
	KindEvent    Kind = "event"
	KindHoliday  Kind = "holiday"
	KindActivity Kind = "activity"
)

// Unit is a materialized display unit. Exactly one of the payload pointers
// matching Kind is non-nil.
type Unit struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"type"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`

	// Date is the YYYY-MM-DD day this unit is listed under.
	Date string `json:"date"`

	// Start / End are clipped to Date for multi-day units.
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`

	Lesson   *LessonInfo   `json:"lesson,omitempty"`
	Event    *EventInfo    `json:"event,omitempty"`
	Holiday  *HolidayInfo  `json:"holiday,omitempty"`
	Activity *ActivityInfo `json:"activity,omitempty"`
}

// Span carries the unclipped extent of a multi-day unit.
type Span struct {
	IsMultiDay bool   `json:"is_multi_day"`
	SpanStart  string `json:"span_start,omitempty"` // YYYY-MM-DD
	SpanEnd    string `json:"span_end,omitempty"`   // YYYY-MM-DD, inclusive
}

type LessonInfo struct {
	ClassID     string `json:"class_id,omitempty"`
	ClassName   string `json:"class,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	SubjectName string `json:"subject,omitempty"`
	Room        string `json:"room,omitempty"`

	// LessonIDs lists every concrete lesson row folded into this unit,
	// ordered by slot start time. Empty for placeholders.
	LessonIDs []string `json:"lesson_ids,omitempty"`
	SlotIDs   []string `json:"slot_ids,omitempty"`

	IsUnfinished  bool   `json:"is_unfinished"`
	LessonPlan    string `json:"lesson_plan,omitempty"`
	PlanCompleted bool   `json:"plan_completed"`
}

type EventInfo struct {
	EventID     string `json:"event_id"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Span
	// SourceStart and SourceEnd are the unclipped bounds of a timed event.
	// Nil for all-day events.
	SourceStart *time.Time `json:"source_start,omitempty"`
	SourceEnd   *time.Time `json:"source_end,omitempty"`
}

type HolidayInfo struct {
	HolidayID string `json:"holiday_id"`
	Span
}

type ActivityInfo struct {
	ActivityID   string `json:"activity_id"`
	ActivityType string `json:"activity_type"`
	SlotID       string `json:"slot_id"`
	Location     string `json:"location,omitempty"`
	Description  string `json:"description,omitempty"`
}

// MultiDay reports whether the unit belongs to a span longer than one day.
func (u Unit) MultiDay() bool {
	switch {
	case u.Event != nil:
		return u.Event.IsMultiDay
	case u.Holiday != nil:
		return u.Holiday.IsMultiDay
	default:
		return false
	}
}

// IsLesson reports whether the unit is a lesson (concrete or placeholder).
func (u Unit) IsLesson() bool {
	return u.Kind == KindLesson
}
