// Package schedule is the output side of the engine: it runs aggregation
// for a day, week or month and attaches everything a renderer needs
// (grid rows, overlap columns, day columns and text colours) so no further
// date math happens downstream.
//
// Engine holds configuration only. Every call builds from the snapshot it is
// handed, so concurrent calls with different snapshots are safe.
package schedule

import (
	"time"

	"plancal/internal/aggregate"
	"plancal/internal/caldate"
	"plancal/internal/layout"
	"plancal/internal/model"
	"plancal/internal/palette"
)

const (
	// placeholderLighten is how far unfinished lesson backgrounds are washed out.
	placeholderLighten = 0.5
	// borderShade moves the border away from the background: lighter on dark
	// fills, darker on light ones.
	borderShade = 0.3
)

// Options configures an Engine.
type Options struct {
	Preference model.ColorPreference
	// Location is the display timezone. If nil, time.Local is used.
	Location   *time.Location
	HeaderRows int
	// CellLimit caps units per month cell; <= 0 uses layout.DefaultCellLimit.
	CellLimit int
}

type Engine struct {
	opts Options
	grid layout.Grid
}

func New(opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Preference == "" {
		opts.Preference = model.PreferSubject
	}
	if opts.HeaderRows < 0 {
		opts.HeaderRows = 0
	}
	if opts.CellLimit <= 0 {
		opts.CellLimit = layout.DefaultCellLimit
	}
	return &Engine{opts: opts, grid: layout.Grid{HeaderRows: opts.HeaderRows}}
}

// Location returns the display timezone.
func (e *Engine) Location() *time.Location {
	return e.opts.Location
}

// Block is a unit ready to draw.
type Block struct {
	model.Unit

	Background  string `json:"background,omitempty"`
	BorderColor string `json:"border_color,omitempty"`
	TextColor   string `json:"text_color,omitempty"`
	Dashed      bool   `json:"dashed"`

	// DayColumn is 1 (Monday) ... 7 (Sunday).
	DayColumn int `json:"day_column"`

	// Timed blocks only.
	Position  *layout.Position  `json:"position,omitempty"`
	Placement *layout.Placement `json:"placement,omitempty"`

	// Week bars only: inclusive 1-indexed column range.
	SpanStartColumn int `json:"span_start_column,omitempty"`
	SpanEndColumn   int `json:"span_end_column,omitempty"`
}

type DayView struct {
	Date        string  `json:"date"`
	DayColumn   int     `json:"day_column"`
	WeekNumber  *int    `json:"week_number,omitempty"`
	HolidayWeek bool    `json:"holiday_week"`
	AllDay      []Block `json:"all_day"`
	Timed       []Block `json:"timed"`
}

type WeekView struct {
	WeekStart string    `json:"week_start"`
	Days      []DayView `json:"days"`
	// Bars holds one block per all-day or multi-day source, clipped to the
	// week, for drawing continuous bars across day columns.
	Bars []Block `json:"bars"`
}

type MonthCell struct {
	Date    string  `json:"date"`
	InMonth bool    `json:"in_month"`
	Blocks  []Block `json:"blocks"`
	More    int     `json:"more"`
}

type MonthView struct {
	Month string `json:"month"` // YYYY-MM
	// Weeks is always layout.MonthWeeks rows of seven cells.
	Weeks [][]MonthCell `json:"weeks"`
}

func (e *Engine) aggregator(snap *model.Snapshot) *aggregate.Aggregator {
	return aggregate.New(snap, aggregate.Options{
		Preference: e.opts.Preference,
		Location:   e.opts.Location,
	})
}

// Range returns aggregated days without layout, for exporters.
func (e *Engine) Range(snap *model.Snapshot, from, to time.Time) []aggregate.Day {
	return e.aggregator(snap).Range(from, to)
}

// Day lays out a single date.
func (e *Engine) Day(snap *model.Snapshot, date time.Time) DayView {
	return e.dayView(e.aggregator(snap).Day(date))
}

// Week lays out the Monday-to-Sunday week containing date.
func (e *Engine) Week(snap *model.Snapshot, date time.Time) WeekView {
	monday := caldate.WeekStart(date.In(e.opts.Location))
	days := e.aggregator(snap).Range(monday, monday.AddDate(0, 0, 6))

	view := WeekView{WeekStart: caldate.Key(monday), Days: make([]DayView, 0, len(days)), Bars: []Block{}}
	seen := make(map[string]bool)
	for _, d := range days {
		dv := e.dayView(d)
		view.Days = append(view.Days, dv)

		for _, b := range dv.AllDay {
			key, spanStart, spanEnd := barSource(b.Unit)
			if seen[key] {
				continue
			}
			seen[key] = true
			startCol, endCol, ok := layout.SpanColumns(spanStart, spanEnd, monday)
			if !ok {
				continue
			}
			bar := b
			bar.SpanStartColumn, bar.SpanEndColumn = startCol, endCol
			view.Bars = append(view.Bars, bar)
		}
	}
	return view
}

// Month lays out the 6-week grid covering year/month.
func (e *Engine) Month(snap *model.Snapshot, year int, month time.Month) MonthView {
	first, last := layout.MonthRange(year, month, e.opts.Location)
	days := e.aggregator(snap).Range(first, last)

	view := MonthView{Month: time.Date(year, month, 1, 0, 0, 0, 0, e.opts.Location).Format("2006-01")}
	var week []MonthCell
	for _, d := range days {
		cell := layout.BucketCell(d.Date, d.Time.Month() == month && d.Time.Year() == year, d.Units(), e.opts.CellLimit)
		mc := MonthCell{Date: cell.Date, InMonth: cell.InMonth, More: cell.More, Blocks: make([]Block, 0, len(cell.Units))}
		for _, u := range cell.Units {
			b := newBlock(u)
			b.DayColumn = layout.DayColumn(d.Time.Weekday())
			mc.Blocks = append(mc.Blocks, b)
		}
		week = append(week, mc)
		if len(week) == 7 {
			view.Weeks = append(view.Weeks, week)
			week = nil
		}
	}
	return view
}

func (e *Engine) dayView(d aggregate.Day) DayView {
	col := layout.DayColumn(d.Time.Weekday())
	view := DayView{
		Date:        d.Date,
		DayColumn:   col,
		WeekNumber:  d.WeekNumber,
		HolidayWeek: d.HolidayWeek,
		AllDay:      make([]Block, 0, len(d.AllDay)),
		Timed:       make([]Block, 0, len(d.Timed)),
	}
	for _, u := range d.AllDay {
		b := newBlock(u)
		b.DayColumn = col
		view.AllDay = append(view.AllDay, b)
	}

	intervals := make([]layout.Interval, 0, len(d.Timed))
	for _, u := range d.Timed {
		b := newBlock(u)
		b.DayColumn = col
		pos := e.grid.Position(d.Time, u.Start, u.End)
		b.Position = &pos
		view.Timed = append(view.Timed, b)
		intervals = append(intervals, layout.Interval{
			ID:       u.ID,
			IsLesson: u.IsLesson(),
			StartRow: pos.StartRow,
			EndRow:   pos.EndRow,
		})
	}
	for i, p := range layout.AssignColumns(intervals) {
		placement := p
		view.Timed[i].Placement = &placement
	}
	return view
}

func newBlock(u model.Unit) Block {
	b := Block{Unit: u, Background: u.Color}
	if u.Lesson != nil && u.Lesson.IsUnfinished {
		b.Dashed = true
		b.Background = palette.Lighten(u.Color, placeholderLighten)
	}
	b.TextColor = palette.TextColor(b.Background)
	if palette.Valid(b.Background) {
		if palette.IsDark(b.Background) {
			b.BorderColor = palette.Lighten(b.Background, borderShade)
		} else {
			b.BorderColor = palette.Darken(b.Background, borderShade)
		}
	}
	return b
}

// barSource identifies the entity behind an all-day unit and its span.
func barSource(u model.Unit) (key, spanStart, spanEnd string) {
	switch {
	case u.Event != nil:
		return "event:" + u.Event.EventID, u.Event.SpanStart, u.Event.SpanEnd
	case u.Holiday != nil:
		return "holiday:" + u.Holiday.HolidayID, u.Holiday.SpanStart, u.Holiday.SpanEnd
	default:
		return u.ID, u.Date, u.Date
	}
}
