package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	appLog "plancal/internal/log"
)

// Feed kinds.
const (
	KindEvent   = "event"
	KindHoliday = "holiday"
)

// Source is one ICS subscription.
type Source struct {
	ID   string
	Name string
	URL  string
	// Kind is KindEvent or KindHoliday.
	Kind  string
	Color string
}

// FetchResult is the outcome of fetching one source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // body reused after 304 or a failed request
}

// cacheEntry holds HTTP validators for one URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads ICS feeds with conditional requests and a disk cache,
// falling back to the last good body when the remote is unavailable.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir. A nil client gets a
// 15 second timeout.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// FetchAll fetches every source. Failed sources are logged and reported in
// the error slice; the rest still return.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics %s: %w", src.ID, err))
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne fetches a single source, honoring ETag and Last-Modified.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))
	cached := FetchResult{Source: src, Body: cachedBody, FromCache: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Warn("ics fetch network error, using cached body", "id", src.ID, "url", redactURL(src.URL), "error", err.Error())
			return cached, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}
		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return cached, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Warn("ics fetch non-OK, using cached body", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
			return cached, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// Import fetches, parses and expands every source into snapshot records.
// Sources that fail are skipped; their errors are returned alongside
// whatever the others produced.
func Import(ctx context.Context, f *Fetcher, sources []Source, cfg ExpandConfig) (ExpandResult, []error) {
	results, errs := f.FetchAll(ctx, sources)

	var parsed []ParsedEvent
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body, cfg.DisplayLocation)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics %s: %w", res.Source.ID, err))
			continue
		}
		parsed = append(parsed, evs...)
	}

	out, err := Expand(parsed, cfg)
	if err != nil {
		errs = append(errs, err)
	}
	return out, errs
}

// redactURL keeps only scheme and host so feed tokens stay out of logs.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
