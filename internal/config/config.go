package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mealcal/internal/extract"
	"mealcal/internal/ics"
)

// CalendarConfig holds the identity fields written into every calendar.
type CalendarConfig struct {
	// ProductID is the PRODID of generated calendars.
	ProductID string `yaml:"product_id" json:"product_id"`
	// UIDDomain is appended to every event UID after '@'.
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `mealcal serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is an IANA zone (e.g. "Europe/London") attached to event times.
	// Empty writes floating local times, which calendar apps show in the
	// viewer's own zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// PlansDir stores meal plans in the JSON interchange format.
	PlansDir string `yaml:"plans_dir" json:"plans_dir"`

	// InvitesDir stores generated .ics files.
	InvitesDir string `yaml:"invites_dir" json:"invites_dir"`

	// InboxDir is watched by `mealcal serve` for new HTML snapshots.
	InboxDir string `yaml:"inbox_dir" json:"inbox_dir"`

	// InboxCron is a cron-style schedule (e.g. "*/5 * * * *") for inbox
	// sweeps. Empty disables the inbox.
	InboxCron string `yaml:"inbox_cron" json:"inbox_cron"`

	// Structured keeps recipe links as a name → URL mapping in saved plans.
	Structured bool `yaml:"structured" json:"structured"`

	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`

	// Signatures overrides the structural markers used to read pages.
	// Unset entries keep their defaults.
	Signatures extract.Signatures `yaml:"signatures" json:"signatures"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultLogLevel   = "info"
	defaultPlansDir   = "meal_plans"
	defaultInvitesDir = "cal_invites"
	defaultInboxDir   = "inbox"
	defaultInboxCron  = "*/5 * * * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     defaultListen,
		Timezone:   "",
		LogLevel:   defaultLogLevel,
		PlansDir:   defaultPlansDir,
		InvitesDir: defaultInvitesDir,
		InboxDir:   defaultInboxDir,
		InboxCron:  defaultInboxCron,
		Calendar: CalendarConfig{
			ProductID: ics.DefaultProductID,
			UIDDomain: ics.DefaultUIDDomain,
		},
		Signatures: extract.DefaultSignatures(),
		BasicAuth:  nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly. InboxCron is left alone: empty is a
// valid "disabled" value.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.PlansDir == "" {
		c.PlansDir = defaultPlansDir
	}
	if c.InvitesDir == "" {
		c.InvitesDir = defaultInvitesDir
	}
	if c.InboxDir == "" {
		c.InboxDir = defaultInboxDir
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = ics.DefaultProductID
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = ics.DefaultUIDDomain
	}
	c.Signatures.Normalize()
}

// Emitter returns a calendar emitter configured from c.
func (c *Config) Emitter() *ics.Emitter {
	return &ics.Emitter{
		ProductID: c.Calendar.ProductID,
		UIDDomain: c.Calendar.UIDDomain,
		Timezone:  c.Timezone,
	}
}

// Extractor returns a page extractor configured from c.
func (c *Config) Extractor() *extract.Extractor {
	return extract.New(c.Signatures, c.Structured)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := Config{InboxCron: defaultInboxCron}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".mealcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
