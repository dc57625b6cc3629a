package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DISTQ_"

// Store selects and locates the tree backend.
type Store struct {
	Backend       string `toml:"backend" env:"STORE_BACKEND"`
	DataDir       string `toml:"data_dir" env:"STORE_DATA_DIR"`
	Fsync         string `toml:"fsync" env:"STORE_FSYNC"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms" env:"STORE_BUSY_TIMEOUT_MS"`
}

// Queue contains queue layout settings.
type Queue struct {
	RootPath string   `toml:"root_path" env:"QUEUE_ROOT_PATH"`
	TimeZone string   `toml:"time_zone" env:"QUEUE_TIME_ZONE"`
	Names    []string `toml:"names" env:"QUEUE_NAMES" envSeparator:","`
}

// Prune contains settings for bucket pruning.
type Prune struct {
	IntervalSeconds int  `toml:"interval_seconds" env:"PRUNE_INTERVAL_SECONDS"`
	IncludeEntries  bool `toml:"include_entries" env:"PRUNE_INCLUDE_ENTRIES"`
}

// Metrics contains the Prometheus endpoint settings. The daemon status API
// is served on the same listener.
type Metrics struct {
	Enabled bool   `toml:"enabled" env:"METRICS_ENABLED"`
	Bind    string `toml:"bind" env:"METRICS_BIND"`
	// Token, when set, is required as a bearer token on /api routes.
	Token string `toml:"token" env:"METRICS_TOKEN"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"LOG_FORMAT"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
	File   string `toml:"file" env:"LOG_FILE"`
}

// Config encapsulates all configuration values for distq.
//
// Configuration sections by subsystem:
//   - Store: tree backend kind, data directory and durability knobs
//   - Queue: queue root path, bucket time zone and daemon-managed queues
//   - Prune: pruning cadence and whether safe buckets may drop entries
//   - Metrics: Prometheus endpoint and daemon status API
//   - Logging: log format, level and optional file
type Config struct {
	Store   Store   `toml:"store"`
	Queue   Queue   `toml:"queue"`
	Prune   Prune   `toml:"prune"`
	Metrics Metrics `toml:"metrics"`
	Logging Logging `toml:"logging"`

	location *time.Location
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file. The returned config has all path
// fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("distq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data directory and the log file directory.
func (c *Config) EnsureDirectories() error {
	if c.Store.Backend != BackendMemory {
		if err := os.MkdirAll(c.Store.DataDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Store.DataDir, err)
		}
	}
	if c.Logging.File != "" {
		dir := filepath.Dir(c.Logging.File)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location returns the time zone used for entry buckets.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// PruneInterval returns the daemon prune cadence.
func (c *Config) PruneInterval() time.Duration {
	return time.Duration(c.Prune.IntervalSeconds) * time.Second
}

// BusyTimeout returns the SQLite busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// SQLitePath returns the SQLite database file for the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Store.DataDir, "tree.db")
}

// PebbleDir returns the Pebble directory for the pebble backend.
func (c *Config) PebbleDir() string {
	return filepath.Join(c.Store.DataDir, "tree")
}

// LockPath returns the daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Store.DataDir, "distqd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
