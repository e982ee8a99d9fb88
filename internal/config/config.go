// Package config loads and persists showsync configuration from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the TOML config file name looked up in the project root.
const FileName = "showsync.toml"

// DefaultExcludedNames are directory/file patterns that are never relevant:
// VCS internals, build caches, editor droppings and compiled artifacts.
var DefaultExcludedNames = []string{
	".git", ".hg", ".svn",
	"node_modules", "__pycache__", ".venv", "venv",
	"target", "dist", "build", ".cache", ".idea", ".vscode",
	".DS_Store", "*.pyc", "*.pyo", "*.o", "*.class", "*.swp", "*.tmp",
}

// Config is the user-facing configuration in TOML format.
type Config struct {
	// ProjectRoot is the directory tree to watch. Default: "."
	ProjectRoot string `toml:"project_root"`

	// WatchPatterns are glob patterns (matched against the path relative to
	// the project root) selecting files of interest. At least one required.
	WatchPatterns []string `toml:"watch_patterns"`

	// DebounceDelayMS is the per-path quiet period in milliseconds before a
	// change is acted on. Default: 2000
	DebounceDelayMS int `toml:"debounce_delay_ms"`

	// MaxQueueSize bounds the dispatch queue. When full, the oldest entry is
	// dropped. Default: 1000
	MaxQueueSize int `toml:"max_queue_size"`

	// ExcludedNames replaces the built-in exclusion set when non-empty.
	ExcludedNames []string `toml:"excluded_names"`

	// Logs configures structured logging output.
	Logs LogSettings `toml:"logs"`

	// Sync configures the durable sync-operation queue.
	Sync SyncSettings `toml:"sync"`

	// Release configures the version-control release inspector.
	Release ReleaseSettings `toml:"release"`

	// Analyze configures the content fingerprint analyzer.
	Analyze AnalyzeSettings `toml:"analyze"`
}

// LogSettings configures log output and rotation.
type LogSettings struct {
	// Dir is the log directory. Empty disables file logging.
	Dir string `toml:"dir"`

	// Level is "debug", "info" (default), "warn" or "error".
	Level string `toml:"level"`

	// Format is "json" (default) or "text".
	Format string `toml:"format"`

	// MaxSizeMB before rotation (default: 10).
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups of rotated files to keep (default: 5).
	MaxBackups int `toml:"max_backups"`
}

// SyncSettings configures the durable sync queue.
type SyncSettings struct {
	// DBPath is the SQLite file for queued operations.
	// Default: <project_root>/.showsync/sync.db
	DBPath string `toml:"db_path"`

	// Buffer is the non-blocking intake channel size (default: 256).
	Buffer int `toml:"buffer"`
}

// ReleaseSettings configures release/version inspection.
type ReleaseSettings struct {
	// PollIntervalSecs between background checks. 0 disables polling
	// (on-demand checks still work). Default: 0
	PollIntervalSecs int `toml:"poll_interval_secs"`

	// CommitDepth is how many recent commits each check inspects (default: 20).
	CommitDepth int `toml:"commit_depth"`
}

// AnalyzeSettings configures content fingerprinting.
type AnalyzeSettings struct {
	// HashRateLimit caps files hashed per second during bursts.
	// 0 = unlimited (default).
	HashRateLimit int `toml:"hash_rate_limit"`

	// HistorySize caps the in-memory recent-change cache (default: 500).
	HistorySize int `toml:"history_size"`
}

// ErrNoPatterns is returned when the config declares no watch patterns.
var ErrNoPatterns = errors.New("config: at least one watch pattern is required")

// Default returns a config with built-in defaults for root.
func Default(root string) *Config {
	return &Config{
		ProjectRoot:     root,
		WatchPatterns:   []string{"**"},
		DebounceDelayMS: 2000,
		MaxQueueSize:    1000,
	}
}

// Load reads and validates the config file at path. A missing file yields
// the defaults for the file's directory.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default(filepath.Dir(path))
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = filepath.Dir(path)
	}
	cfg.ProjectRoot = ExpandTilde(cfg.ProjectRoot)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for unusable values.
func (c *Config) Validate() error {
	if len(c.WatchPatterns) == 0 {
		return ErrNoPatterns
	}
	if c.DebounceDelayMS < 0 {
		return fmt.Errorf("config: debounce_delay_ms must be >= 0, got %d", c.DebounceDelayMS)
	}
	if c.MaxQueueSize < 0 {
		return fmt.Errorf("config: max_queue_size must be >= 0, got %d", c.MaxQueueSize)
	}
	return nil
}

// DebounceDelay returns the debounce window, defaulting to 2s.
func (c *Config) DebounceDelay() time.Duration {
	if c.DebounceDelayMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.DebounceDelayMS) * time.Millisecond
}

// QueueSize returns the dispatch queue capacity, defaulting to 1000.
func (c *Config) QueueSize() int {
	if c.MaxQueueSize <= 0 {
		return 1000
	}
	return c.MaxQueueSize
}

// Exclusions returns the exclusion set, falling back to built-in defaults.
func (c *Config) Exclusions() []string {
	if len(c.ExcludedNames) > 0 {
		return c.ExcludedNames
	}
	return DefaultExcludedNames
}

// SyncDBPath returns the sync queue database path with its default applied.
func (c *Config) SyncDBPath() string {
	if c.Sync.DBPath != "" {
		return ExpandTilde(c.Sync.DBPath)
	}
	return filepath.Join(c.ProjectRoot, ".showsync", "sync.db")
}

// SyncBuffer returns the intake channel size, defaulting to 256.
func (c *Config) SyncBuffer() int {
	if c.Sync.Buffer <= 0 {
		return 256
	}
	return c.Sync.Buffer
}

// ReleasePollInterval returns the poll interval; 0 means polling disabled.
func (c *Config) ReleasePollInterval() time.Duration {
	if c.Release.PollIntervalSecs <= 0 {
		return 0
	}
	return time.Duration(c.Release.PollIntervalSecs) * time.Second
}

// CommitDepth returns how many recent commits to inspect, defaulting to 20.
func (c *Config) CommitDepth() int {
	if c.Release.CommitDepth <= 0 {
		return 20
	}
	return c.Release.CommitDepth
}

// HistorySize returns the recent-change cache cap, defaulting to 500.
func (c *Config) HistorySize() int {
	if c.Analyze.HistorySize <= 0 {
		return 500
	}
	return c.Analyze.HistorySize
}

// Save writes the config to path using the atomic write pattern: temp file,
// fsync, rename. A crash mid-save never leaves a truncated config behind.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# showsync configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: write temp: %w", err)
	}
	// Rename below is still atomic; fsync failure is not fatal.
	_ = syncFile(tmpPath)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: finalize: %w", err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// ExpandTilde expands a leading ~/ to the user's home directory.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
