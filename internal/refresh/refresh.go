// Package refresh keeps the snapshot store current: on a cron schedule it
// re-reads the snapshot file and re-imports every ICS feed.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"plancal/internal/config"
	"plancal/internal/ics"
	appLog "plancal/internal/log"
	"plancal/internal/snapshot"
)

const (
	fallbackSpec = "@every 15m"

	// Feeds are expanded over this window around now.
	lookBehind = 90 * 24 * time.Hour
	lookAhead  = 400 * 24 * time.Hour
)

// ErrSnapshot marks a RunOnce failure caused by the snapshot file rather
// than by a feed.
var ErrSnapshot = errors.New("snapshot reload failed")

// Worker periodically reloads the store.
type Worker struct {
	cfg     *config.Config
	store   *snapshot.Store
	fetcher *ics.Fetcher
	loc     *time.Location
	now     func() time.Time

	mu     sync.Mutex // serializes RunOnce
	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewWorker(cfg *config.Config, store *snapshot.Store, fetcher *ics.Fetcher, loc *time.Location) *Worker {
	if loc == nil {
		loc = time.Local
	}
	return &Worker{cfg: cfg, store: store, fetcher: fetcher, loc: loc, now: time.Now}
}

// Start schedules RunOnce on cfg.RefreshCron. An invalid spec falls back to
// every 15 minutes.
func (w *Worker) Start(ctx context.Context) {
	w.runCtx, w.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithLocation(w.loc))
	if _, err := c.AddFunc(w.cfg.RefreshCron, func() { w.RunOnce(w.runCtx) }); err != nil {
		appLog.Warn("refresh: invalid cron spec; falling back", "spec", w.cfg.RefreshCron, "fallback", fallbackSpec, "error", err.Error())
		c = cron.New(cron.WithLocation(w.loc))
		_, _ = c.AddFunc(fallbackSpec, func() { w.RunOnce(w.runCtx) })
	}
	c.Start()
	w.cron = c
}

// Stop cancels in-flight work and waits for running jobs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// RunOnce reloads the snapshot file and re-imports the feeds. A failure in
// either half leaves the previous data for that half in place.
func (w *Worker) RunOnce(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	var errs []error
	if err := w.store.Reload(w.cfg.Snapshot); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrSnapshot, err))
	}

	if len(w.cfg.ICS) > 0 {
		now := w.now().In(w.loc)
		res, importErrs := ics.Import(ctx, w.fetcher, Sources(w.cfg.ICS), ics.ExpandConfig{
			DisplayLocation: w.loc,
			RangeStart:      now.Add(-lookBehind),
			RangeEnd:        now.Add(lookAhead),
		})
		errs = append(errs, importErrs...)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.store.SetImported(res.Events, res.Holidays)
		appLog.Info("refresh: feeds imported",
			"events", len(res.Events),
			"holidays", len(res.Holidays),
			"truncated", len(res.TruncatedEvents),
			"errors", len(importErrs),
		)
	}

	err := errors.Join(errs...)
	if err != nil {
		appLog.Error("refresh completed with errors", err, "duration_ms", time.Since(started).Milliseconds())
		return err
	}
	appLog.Info("refresh completed", "duration_ms", time.Since(started).Milliseconds())
	return nil
}

// Sources converts configured feeds into fetch sources.
func Sources(cfgs []config.ICSConfig) []ics.Source {
	out := make([]ics.Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.URL
		}
		out = append(out, ics.Source{ID: id, Name: c.Name, URL: c.URL, Kind: c.Kind, Color: c.Color})
	}
	return out
}
