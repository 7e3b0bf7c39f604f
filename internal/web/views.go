package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"plancal/internal/caldate"
	"plancal/internal/ics"
	"plancal/internal/model"
)

const (
	defaultExportDays = 28
	maxExportDays     = 366
)

// GET /api/day?date=YYYY-MM-DD (default today)
func (s *Server) handleDay(r *http.Request, snap *model.Snapshot) (string, []byte, error) {
	date, err := s.dateParam(r, "date")
	if err != nil {
		return "", nil, err
	}
	return encodeJSON(s.engine.Day(snap, date))
}

// GET /api/week?date=YYYY-MM-DD, any day of the wanted week
func (s *Server) handleWeek(r *http.Request, snap *model.Snapshot) (string, []byte, error) {
	date, err := s.dateParam(r, "date")
	if err != nil {
		return "", nil, err
	}
	return encodeJSON(s.engine.Week(snap, date))
}

// GET /api/month?month=YYYY-MM (default this month)
func (s *Server) handleMonth(r *http.Request, snap *model.Snapshot) (string, []byte, error) {
	loc := s.engine.Location()
	month := s.now().In(loc)
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := time.ParseInLocation("2006-01", v, loc)
		if err != nil {
			return "", nil, badRequest{msg: fmt.Sprintf("invalid month %q, want YYYY-MM", v)}
		}
		month = parsed
	}
	return encodeJSON(s.engine.Month(snap, month.Year(), month.Month()))
}

// GET /export.ics?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleExport(r *http.Request, snap *model.Snapshot) (string, []byte, error) {
	from, err := s.dateParam(r, "from")
	if err != nil {
		return "", nil, err
	}
	to := from.AddDate(0, 0, defaultExportDays-1)
	if r.URL.Query().Get("to") != "" {
		if to, err = s.dateParam(r, "to"); err != nil {
			return "", nil, err
		}
	}
	span := caldate.DaysBetween(from, to)
	if span < 0 {
		return "", nil, badRequest{msg: "to is before from"}
	}
	if span >= maxExportDays {
		return "", nil, badRequest{msg: fmt.Sprintf("range exceeds %d days", maxExportDays)}
	}

	days := s.engine.Range(snap, from, to)
	body := ics.Export(days, ics.ExportOptions{
		Name:     "plancal",
		Location: s.engine.Location(),
		Now:      s.now(),
	})
	return "text/calendar; charset=utf-8", []byte(body), nil
}

// dateParam reads a YYYY-MM-DD query value in the display zone, defaulting
// to today.
func (s *Server) dateParam(r *http.Request, name string) (time.Time, error) {
	loc := s.engine.Location()
	v := r.URL.Query().Get(name)
	if v == "" {
		return caldate.StartOfDay(s.now().In(loc)), nil
	}
	t, err := caldate.ParseDate(v, loc)
	if err != nil {
		return time.Time{}, badRequest{msg: fmt.Sprintf("invalid %s %q, want YYYY-MM-DD", name, v)}
	}
	return t, nil
}

func encodeJSON(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return contentTypeJSON, body, nil
}
