package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"plancal/internal/layout"
	"plancal/internal/model"
)

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "Europe/London"
	defaultSnapshot = "./var/snapshot.yaml"
	defaultRefresh  = "*/15 * * * *"
	defaultCacheDir = "./var/ics-cache"

	defaultRateLimit = 20
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url" validate:"required,url"`
	// Kind is "event" (merged as ad-hoc events) or "holiday".
	Kind  string `yaml:"kind" json:"kind" validate:"oneof=event holiday"`
	Color string `yaml:"color,omitempty" json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// Timezone is the IANA display zone; all date keys are taken in it.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required,timezone"`

	// Snapshot is the YAML file holding timetable, lessons, events and
	// holidays.
	Snapshot string `yaml:"snapshot" json:"snapshot" validate:"required"`

	// RefreshCron reloads the snapshot and refetches ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	ColorPreference model.ColorPreference `yaml:"color_preference" json:"color_preference" validate:"oneof=subject class"`

	// HeaderRows offsets the time grid below the day header.
	HeaderRows int `yaml:"header_rows" json:"header_rows" validate:"gte=0"`

	// MonthCellLimit caps units listed per month cell before "+N more".
	MonthCellLimit int `yaml:"month_cell_limit" json:"month_cell_limit" validate:"gte=1"`

	// ICSCacheDir stores fetched feed bodies and their HTTP validators.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// ICS is the list of subscribed feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics" validate:"dive"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit int `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var validate = validator.New()

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		Timezone:        defaultTimezone,
		Snapshot:        defaultSnapshot,
		RefreshCron:     defaultRefresh,
		ColorPreference: model.PreferSubject,
		HeaderRows:      layout.DefaultHeaderRows,
		MonthCellLimit:  layout.DefaultCellLimit,
		ICSCacheDir:     defaultCacheDir,
		ICS:             []ICSConfig{},
		CORSOrigins:     []string{},
		RateLimit:       defaultRateLimit,
	}
}

// Normalize fills in missing/zero values so partially-filled configs
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Snapshot == "" {
		c.Snapshot = defaultSnapshot
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	switch c.ColorPreference {
	case model.PreferSubject, model.PreferClass:
	default:
		c.ColorPreference = model.PreferSubject
	}
	if c.HeaderRows < 0 {
		c.HeaderRows = layout.DefaultHeaderRows
	}
	if c.MonthCellLimit <= 0 {
		c.MonthCellLimit = layout.DefaultCellLimit
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	for i := range c.ICS {
		if c.ICS[i].Kind == "" {
			c.ICS[i].Kind = "event"
		}
	}
}

// Validate checks struct constraints and that feed IDs are unique.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seen := make(map[string]bool, len(c.ICS))
	for _, s := range c.ICS {
		if seen[s.ID] {
			return fmt.Errorf("config: duplicate ics id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written with 0600 perms
// and returned. Otherwise the file is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".plancal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
