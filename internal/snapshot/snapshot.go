// Package snapshot loads the timetable data file and holds the current
// immutable snapshot, merged with whatever the ICS feeds last produced.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	appLog "plancal/internal/log"
	"plancal/internal/model"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

var validate = validator.New()

// Load reads a YAML snapshot. Individual malformed records are left for the
// engine to skip; only an unreadable file or an unusable academic year fails.
func Load(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML snapshot.
func Parse(data []byte) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if snap.AcademicYear.CycleLength == 0 {
		snap.AcademicYear.CycleLength = 1
	}
	if err := validate.Struct(snap.AcademicYear); err != nil {
		return nil, fmt.Errorf("%w: academic_year: %v", ErrInvalidSnapshot, err)
	}
	return &snap, nil
}

// Store publishes snapshots to concurrent readers. Every update builds a
// fresh merged snapshot; readers never see a partial write.
type Store struct {
	mu       sync.RWMutex
	base     *model.Snapshot
	events   []model.CalendarEvent
	holidays []model.Holiday
	merged   *model.Snapshot
	version  uint64
}

func NewStore(base *model.Snapshot) *Store {
	s := &Store{}
	if base == nil {
		base = &model.Snapshot{}
	}
	s.base = base
	s.rebuild()
	return s
}

// Current returns the merged snapshot and its version. The snapshot must be
// treated as read-only.
func (s *Store) Current() (*model.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merged, s.version
}

// Version changes whenever the merged snapshot does.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetBase replaces the file-backed part of the snapshot.
func (s *Store) SetBase(base *model.Snapshot) {
	if base == nil {
		return
	}
	s.mu.Lock()
	s.base = base
	s.rebuild()
	s.mu.Unlock()
}

// SetImported replaces the records imported from ICS feeds.
func (s *Store) SetImported(events []model.CalendarEvent, holidays []model.Holiday) {
	s.mu.Lock()
	s.events = events
	s.holidays = holidays
	s.rebuild()
	s.mu.Unlock()
}

// Reload re-reads path into the base snapshot. On failure the previous
// snapshot stays in place.
func (s *Store) Reload(path string) error {
	snap, err := Load(path)
	if err != nil {
		appLog.Error("snapshot reload failed; keeping previous", err, "path", path)
		return err
	}
	s.SetBase(snap)
	appLog.Info("snapshot reloaded",
		"path", path,
		"lessons", len(snap.Lessons),
		"entries", len(snap.Entries),
		"events", len(snap.Events),
		"holidays", len(snap.Holidays),
	)
	return nil
}

// rebuild must be called with mu held.
func (s *Store) rebuild() {
	m := *s.base
	m.Events = append(append([]model.CalendarEvent(nil), s.base.Events...), s.events...)
	m.Holidays = append(append([]model.Holiday(nil), s.base.Holidays...), s.holidays...)
	s.merged = &m
	s.version++
}
