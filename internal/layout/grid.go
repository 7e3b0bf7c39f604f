// Package layout maps display units onto the calendar grid: 5-minute rows
// within a day, Monday-first day columns within a week, and truncated day
// cells within a month.
package layout

import (
	"time"

	"plancal/internal/caldate"
)

const (
	SlotMinutes = 5
	RowsPerHour = 60 / SlotMinutes
	RowsPerDay  = 24 * RowsPerHour // 288

	// DefaultHeaderRows is the row offset reserved for the column header.
	DefaultHeaderRows = 1
)

// Grid carries the fixed row offset. The zero value has no header.
type Grid struct {
	HeaderRows int
}

// Position is a unit's vertical placement. EndRow is exclusive.
type Position struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
	Duration int `json:"duration"`
}

// Row maps a wall-clock time to its header-free row index.
func Row(hour, minute int) int {
	return hour*RowsPerHour + minute/SlotMinutes
}

// Row maps t's wall-clock time to a grid row, header included.
func (g Grid) Row(t time.Time) int {
	return g.HeaderRows + Row(t.Hour(), t.Minute())
}

// Position places [start, end) on day. Times outside the day are clamped to
// its edges; the result always spans at least one row, even for zero-length
// or inverted ranges.
func (g Grid) Position(day, start, end time.Time) Position {
	dayStart := caldate.StartOfDay(day)
	nextDay := dayStart.AddDate(0, 0, 1)

	startRow := g.HeaderRows
	if start.After(dayStart) {
		startRow = g.Row(start)
		if !start.Before(nextDay) {
			startRow = g.HeaderRows + RowsPerDay - 1
		}
	}

	endRow := g.HeaderRows + RowsPerDay
	if end.Before(nextDay) {
		endRow = g.Row(end)
		if !end.After(dayStart) {
			endRow = g.HeaderRows
		}
	}

	duration := endRow - startRow
	if duration < 1 {
		duration = 1
	}
	return Position{StartRow: startRow, EndRow: startRow + duration, Duration: duration}
}

// DayColumn maps a weekday to a 1-indexed column, Monday = 1 ... Sunday = 7.
func DayColumn(w time.Weekday) int {
	if w == time.Sunday {
		return 7
	}
	return int(w)
}

// SpanColumns clips an inclusive [spanStart, spanEnd] date-key range to the
// week beginning weekStart and returns its 1-indexed day columns. ok is
// false when the span misses the week or a key is malformed.
func SpanColumns(spanStart, spanEnd string, weekStart time.Time) (startCol, endCol int, ok bool) {
	from, err := caldate.ParseDate(spanStart, weekStart.Location())
	if err != nil {
		return 0, 0, false
	}
	to, err := caldate.ParseDate(spanEnd, weekStart.Location())
	if err != nil {
		return 0, 0, false
	}
	monday := caldate.WeekStart(weekStart)
	startOffset := caldate.DaysBetween(monday, from)
	endOffset := caldate.DaysBetween(monday, to)
	if endOffset < 0 || startOffset > 6 || endOffset < startOffset {
		return 0, 0, false
	}
	if startOffset < 0 {
		startOffset = 0
	}
	if endOffset > 6 {
		endOffset = 6
	}
	return startOffset + 1, endOffset + 1, true
}
