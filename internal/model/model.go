package model

// ColorPreference selects which catalogue entry drives placeholder titles
// and fallback colours.
type ColorPreference string

const (
	PreferSubject ColorPreference = "subject"
	PreferClass   ColorPreference = "class"
)

// TimetableSlot is a recurring time-of-day template. It identifies a position
// in the weekly cycle, not a date.
type TimetableSlot struct {
	ID        string `yaml:"id" json:"id"`
	StartTime string `yaml:"start_time" json:"start_time"` // HH:MM
	EndTime   string `yaml:"end_time" json:"end_time"`     // HH:MM
	// WeekNumber restricts the slot to cycle week 1 or 2; 0 means any week.
	WeekNumber int    `yaml:"week_number" json:"week_number"`
	Label      string `yaml:"label" json:"label"`
}

// TimetableEntry assigns a class and/or subject to a
// (dayOfWeek, weekNumber, slot) triple. Empty ClassID/SubjectID mean null.
type TimetableEntry struct {
	ID              string `yaml:"id" json:"id"`
	DayOfWeek       string `yaml:"day_of_week" json:"day_of_week"`
	WeekNumber      int    `yaml:"week_number" json:"week_number"`
	TimetableSlotID string `yaml:"timetable_slot_id" json:"timetable_slot_id"`
	ClassID         string `yaml:"class_id,omitempty" json:"class_id,omitempty"`
	SubjectID       string `yaml:"subject_id,omitempty" json:"subject_id,omitempty"`
	Room            string `yaml:"room,omitempty" json:"room,omitempty"`
}

// TimetableActivity is a non-teaching occupant of a slot-occurrence
// (meetings, duties).
type TimetableActivity struct {
	ID              string `yaml:"id" json:"id"`
	DayOfWeek       string `yaml:"day_of_week" json:"day_of_week"`
	WeekNumber      int    `yaml:"week_number" json:"week_number"`
	TimetableSlotID string `yaml:"timetable_slot_id" json:"timetable_slot_id"`
	Title           string `yaml:"title" json:"title"`
	ActivityType    string `yaml:"activity_type" json:"activity_type"`
	Color           string `yaml:"color,omitempty" json:"color,omitempty"`
	Location        string `yaml:"location,omitempty" json:"location,omitempty"`
	Description     string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Lesson is a concrete, dated lesson record.
type Lesson struct {
	ID              string `yaml:"id" json:"id"`
	Date            string `yaml:"date" json:"date"` // YYYY-MM-DD, time-of-day ignored
	TimetableSlotID string `yaml:"timetable_slot_id" json:"timetable_slot_id"`
	ClassID         string `yaml:"class_id,omitempty" json:"class_id,omitempty"`
	SubjectID       string `yaml:"subject_id,omitempty" json:"subject_id,omitempty"`
	Title           string `yaml:"title" json:"title"`
	LessonPlan      string `yaml:"lesson_plan,omitempty" json:"lesson_plan,omitempty"`
	PlanCompleted   bool   `yaml:"plan_completed" json:"plan_completed"`
	Color           string `yaml:"color,omitempty" json:"color,omitempty"`
}

// CalendarEvent is a user-created, non-recurring event. StartTime/EndTime are
// kept as strings (date or timestamp) so malformed records can be skipped
// individually.
type CalendarEvent struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	StartTime   string `yaml:"start_time" json:"start_time"`
	EndTime     string `yaml:"end_time" json:"end_time"`
	AllDay      bool   `yaml:"all_day" json:"all_day"`
	Color       string `yaml:"color,omitempty" json:"color,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Holiday is a named, inclusive date range. Always all-day.
type Holiday struct {
	ID        string `yaml:"id" json:"id"`
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`
	Name      string `yaml:"name" json:"name"`
	Color     string `yaml:"color,omitempty" json:"color,omitempty"`
}

// AcademicYear anchors the week cycle.
type AcademicYear struct {
	StartDate string `yaml:"start_date" json:"start_date" validate:"required"`
	// EndDate is optional; dates after it fall outside the cycle.
	EndDate          string `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	CycleLength      int    `yaml:"cycle_length" json:"cycle_length" validate:"oneof=1 2"`
	SkipHolidayWeeks bool   `yaml:"skip_holiday_weeks" json:"skip_holiday_weeks"`
}

// Class and Subject are the catalogue records lessons and entries point at.
type Class struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

type Subject struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// Snapshot is the immutable set of inputs for a single render pass.
type Snapshot struct {
	AcademicYear AcademicYear        `yaml:"academic_year" json:"academic_year"`
	Slots        []TimetableSlot     `yaml:"slots" json:"slots"`
	Entries      []TimetableEntry    `yaml:"entries" json:"entries"`
	Activities   []TimetableActivity `yaml:"activities" json:"activities"`
	Lessons      []Lesson            `yaml:"lessons" json:"lessons"`
	Events       []CalendarEvent     `yaml:"events" json:"events"`
	Holidays     []Holiday           `yaml:"holidays" json:"holidays"`
	Classes      []Class             `yaml:"classes" json:"classes"`
	Subjects     []Subject           `yaml:"subjects" json:"subjects"`
}
