package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/aggregate"
	"plancal/internal/model"
)

func calendar(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

var eventFeed = calendar(
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Staff briefing",
	"LOCATION:Hall",
	"DTSTART:20250106T090000Z",
	"DTEND:20250106T100000Z",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE:20250113T090000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Staff briefing (moved)",
	"RECURRENCE-ID:20250120T090000Z",
	"DTSTART:20250120T140000Z",
	"DTEND:20250120T150000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:No UID",
	"DTSTART:20250106T090000Z",
	"END:VEVENT",
)

var holidayFeed = calendar(
	"BEGIN:VEVENT",
	"UID:half-term",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Half term",
	"DTSTART;VALUE=DATE:20250217",
	"DTEND;VALUE=DATE:20250222",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:inset",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Inset day",
	"DTSTART;VALUE=DATE:20250307",
	"END:VEVENT",
)

func window() ExpandConfig {
	return ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseICS(t *testing.T) {
	src := Source{ID: "school", Kind: KindEvent}
	events, err := ParseICS(src, eventFeed, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2, "VEVENT without UID is skipped")

	assert.Equal(t, "weekly-1", events[0].UID)
	assert.Equal(t, "Hall", events[0].Location)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", events[0].RawRRule)
	require.Len(t, events[0].ExDates, 1)
	assert.False(t, events[0].AllDay)

	assert.True(t, events[1].IsOverride)

	_, err = ParseICS(src, nil, time.UTC)
	assert.Error(t, err)
}

func TestExpandEvents(t *testing.T) {
	src := Source{ID: "school", Kind: KindEvent, Color: "#6B7280"}
	parsed, err := ParseICS(src, eventFeed, time.UTC)
	require.NoError(t, err)

	res, err := Expand(parsed, window())
	require.NoError(t, err)
	assert.Empty(t, res.Holidays)
	require.Len(t, res.Events, 3, "EXDATE removes the second week")

	assert.Equal(t, "2025-01-06T09:00:00Z", res.Events[0].StartTime)
	assert.Equal(t, "2025-01-06T10:00:00Z", res.Events[0].EndTime)
	assert.Equal(t, "#6B7280", res.Events[0].Color)

	moved := res.Events[1]
	assert.Equal(t, "Staff briefing (moved)", moved.Title)
	assert.Equal(t, "2025-01-20T14:00:00Z", moved.StartTime)
	assert.Equal(t, "school:weekly-1:20250120T090000Z", moved.ID, "keyed by the original instance")

	assert.Equal(t, "2025-01-27T09:00:00Z", res.Events[2].StartTime)

	t.Run("Inverted Window", func(t *testing.T) {
		cfg := window()
		cfg.RangeStart, cfg.RangeEnd = cfg.RangeEnd, cfg.RangeStart
		_, err := Expand(parsed, cfg)
		assert.Error(t, err)
	})

	t.Run("Cap", func(t *testing.T) {
		cfg := window()
		cfg.MaxOccurrencesPerEvent = 1
		res, err := Expand(parsed, cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"weekly-1"}, res.TruncatedEvents)
		assert.Len(t, res.Events, 1)
	})
}

func TestExpandOverrideSequence(t *testing.T) {
	feed := calendar(
		"BEGIN:VEVENT",
		"UID:club",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Chess club",
		"DTSTART:20250107T153000Z",
		"DTEND:20250107T163000Z",
		"RRULE:FREQ=WEEKLY;COUNT=2",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:club",
		"DTSTAMP:20250101T000000Z",
		"SEQUENCE:2",
		"SUMMARY:Chess club (final)",
		"RECURRENCE-ID:20250114T153000Z",
		"DTSTART:20250114T160000Z",
		"DTEND:20250114T170000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:club",
		"DTSTAMP:20250101T000000Z",
		"SEQUENCE:1",
		"SUMMARY:Chess club (draft)",
		"RECURRENCE-ID:20250114T153000Z",
		"DTSTART:20250114T170000Z",
		"DTEND:20250114T180000Z",
		"END:VEVENT",
	)
	parsed, err := ParseICS(Source{ID: "clubs", Kind: KindEvent}, feed, time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assert.Equal(t, 2, parsed[1].Seq)

	res, err := Expand(parsed, window())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "Chess club (final)", res.Events[1].Title, "highest SEQUENCE wins")
	assert.Equal(t, "2025-01-14T16:00:00Z", res.Events[1].StartTime)
}

func TestExpandHolidays(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "lea", Kind: KindHoliday}, holidayFeed, time.UTC)
	require.NoError(t, err)

	res, err := Expand(parsed, window())
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	require.Len(t, res.Holidays, 2)

	assert.Equal(t, "Half term", res.Holidays[0].Name)
	assert.Equal(t, "2025-02-17", res.Holidays[0].StartDate)
	assert.Equal(t, "2025-02-21", res.Holidays[0].EndDate, "DTEND is exclusive")

	assert.Equal(t, "2025-03-07", res.Holidays[1].StartDate)
	assert.Equal(t, "2025-03-07", res.Holidays[1].EndDate)
}

func TestFetcherCaching(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(holidayFeed)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "lea", URL: srv.URL + "/feed.ics?token=secret", Kind: KindHoliday}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, holidayFeed, first.Body)

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "304 reuses the cached body")
	assert.Equal(t, holidayFeed, second.Body)

	failing.Store(true)
	third, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.EqualValues(t, 3, hits.Load())

	_, errs := f.FetchAll(context.Background(), []Source{{ID: "nowhere", URL: srv.URL + "/other.ics"}})
	assert.Len(t, errs, 1, "no cache to fall back on")
}

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events.ics":
			_, _ = w.Write(eventFeed)
		case "/holidays.ics":
			_, _ = w.Write(holidayFeed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	res, errs := Import(context.Background(), f, []Source{
		{ID: "school", URL: srv.URL + "/events.ics", Kind: KindEvent},
		{ID: "lea", URL: srv.URL + "/holidays.ics", Kind: KindHoliday},
		{ID: "gone", URL: srv.URL + "/missing.ics", Kind: KindEvent},
	}, window())

	assert.Len(t, errs, 1)
	assert.Len(t, res.Events, 3)
	assert.Len(t, res.Holidays, 2)
}

func TestExport(t *testing.T) {
	snap := &model.Snapshot{
		AcademicYear: model.AcademicYear{StartDate: "2025-01-06", CycleLength: 1},
		Events: []model.CalendarEvent{
			{ID: "trip", Title: "Residential", StartTime: "2025-02-05", EndTime: "2025-02-07", AllDay: true},
			{ID: "obs", Title: "Observation", StartTime: "2025-02-05T09:15:00Z", EndTime: "2025-02-05T10:00:00Z", Location: "Room 4"},
			{ID: "camp", Title: "Camp", StartTime: "2025-02-07T16:00:00Z", EndTime: "2025-02-08T11:00:00Z"},
		},
	}
	agg := aggregate.New(snap, aggregate.Options{Location: time.UTC})
	days := agg.Range(time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC))

	out := Export(days, ExportOptions{Name: "Timetable", Location: time.UTC, Now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})

	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"), "multi-day units are emitted once")
	assert.Contains(t, out, "UID:event-trip@plancal")
	assert.Contains(t, out, "20250205")
	assert.Contains(t, out, "20250208", "all-day DTEND is exclusive")
	assert.Contains(t, out, "SUMMARY:Observation")
	assert.Contains(t, out, "LOCATION:Room 4")

	parsed, err := ParseICS(Source{ID: "self", Kind: KindEvent}, []byte(out), time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	var camp ParsedEvent
	for _, p := range parsed {
		if p.Summary == "Camp" {
			camp = p
		}
	}
	assert.False(t, camp.AllDay, "timed multi-day events keep their clock times")
	assert.True(t, camp.Start.Equal(time.Date(2025, 2, 7, 16, 0, 0, 0, time.UTC)))
	assert.True(t, camp.End.Equal(time.Date(2025, 2, 8, 11, 0, 0, 0, time.UTC)))
}
