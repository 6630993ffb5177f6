// Package config manages the icloud-cli configuration file and its
// XDG-derived default paths.
//
// Config file: ~/.config/icloud-cli/config.toml
// Session dir: ~/.config/icloud-cli/session/
// Cache dir:   ~/.local/share/icloud-cli/cache/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const appDirName = "icloud-cli"

// GeneralConfig holds display-level settings.
type GeneralConfig struct {
	DefaultFormat string `toml:"default_format"`
	Verbose       bool   `toml:"verbose"`
}

// AuthConfig holds account and session settings.
type AuthConfig struct {
	AppleID    string `toml:"apple_id"`
	SessionDir string `toml:"session_dir"`
}

// NotesConfig holds Notes (IMAP) settings.
type NotesConfig struct {
	IMAPPasswordInKeyring bool `toml:"imap_password_in_keyring"`
}

// SyncConfig holds background sync settings.
type SyncConfig struct {
	IntervalMinutes int    `toml:"sync_interval_minutes"`
	CacheDir        string `toml:"cache_dir"`
}

// CalendarConfig holds calendar settings.
type CalendarConfig struct {
	DefaultCalendar string `toml:"default_calendar"`
}

// RemindersConfig holds reminders settings.
type RemindersConfig struct {
	DefaultList string `toml:"default_reminder_list"`
}

// Config is the full application configuration.
type Config struct {
	General   GeneralConfig   `toml:"general"`
	Auth      AuthConfig      `toml:"auth"`
	Notes     NotesConfig     `toml:"notes"`
	Sync      SyncConfig      `toml:"sync"`
	Calendar  CalendarConfig  `toml:"calendar"`
	Reminders RemindersConfig `toml:"reminders"`

	path string
}

// ConfigDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".config", appDirName)
}

// DataDir returns the data directory, honoring XDG_DATA_HOME.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Default returns a config populated with default values.
func Default() *Config {
	return &Config{
		General: GeneralConfig{DefaultFormat: "table"},
		Auth:    AuthConfig{SessionDir: filepath.Join(ConfigDir(), "session")},
		Sync: SyncConfig{
			IntervalMinutes: 15,
			CacheDir:        filepath.Join(DataDir(), "cache"),
		},
		path: DefaultPath(),
	}
}

// Load reads the config from path, falling back to defaults for anything
// unset. A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Values the file left empty fall back to defaults.
	def := Default()
	if cfg.General.DefaultFormat == "" {
		cfg.General.DefaultFormat = def.General.DefaultFormat
	}
	if cfg.Auth.SessionDir == "" {
		cfg.Auth.SessionDir = def.Auth.SessionDir
	}
	if cfg.Sync.IntervalMinutes == 0 {
		cfg.Sync.IntervalMinutes = def.Sync.IntervalMinutes
	}
	if cfg.Sync.CacheDir == "" {
		cfg.Sync.CacheDir = def.Sync.CacheDir
	}

	return cfg, nil
}

// Path returns the config file path this config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to disk using an atomic write (temp file + rename).
func (c *Config) Save() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.toml.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, c.path)
}

// EnsureDirs creates the session and cache directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Auth.SessionDir, c.Sync.CacheDir, filepath.Dir(c.path)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
