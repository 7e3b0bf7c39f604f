package layout

import (
	"sort"
	"strings"
	"time"

	"plancal/internal/caldate"
	"plancal/internal/model"
)

const (
	// DefaultCellLimit is how many units a month cell shows before "+N more".
	DefaultCellLimit = 3
	// MonthWeeks is the fixed number of week rows in a month grid.
	MonthWeeks = 6
)

// Cell is one day of a month grid.
type Cell struct {
	Date    string       `json:"date"`
	InMonth bool         `json:"in_month"`
	Units   []model.Unit `json:"units"`
	More    int          `json:"more"`
}

// MonthRange returns the first and last day of the 6-week grid covering
// month: from the Monday on or before the 1st, 42 days long.
func MonthRange(year int, month time.Month, loc *time.Location) (first, last time.Time) {
	if loc == nil {
		loc = time.Local
	}
	first = caldate.WeekStart(time.Date(year, month, 1, 0, 0, 0, 0, loc))
	last = first.AddDate(0, 0, MonthWeeks*7-1)
	return first, last
}

// BucketCell orders a day's units (all-day first by title, then timed by
// start) and keeps the first limit of them. limit <= 0 keeps everything.
func BucketCell(date string, inMonth bool, units []model.Unit, limit int) Cell {
	sorted := append([]model.Unit(nil), units...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.AllDay {
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if ta != tb {
				return ta < tb
			}
			return a.ID < b.ID
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID < b.ID
	})

	cell := Cell{Date: date, InMonth: inMonth, Units: sorted}
	if limit > 0 && len(sorted) > limit {
		cell.Units = sorted[:limit]
		cell.More = len(sorted) - limit
	}
	return cell
}
