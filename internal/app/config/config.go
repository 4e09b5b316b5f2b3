// Package config holds the validated, immutable settings for a sensor
// shell: host and credentials, timeouts, autosend intervals, buffer sizes,
// offline behavior, and the multi-shell knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for every optional key. Required keys (host, user, password)
// have none.
const (
	DefaultTimeoutSec          = 10
	DefaultAutoSendInterval    = 1.0 // minutes
	DefaultAutoSendMaxBuffer   = 250
	DefaultStateChangeInterval = 30 // seconds
	DefaultMultiShellNumShells = 10
	DefaultMultiShellBatchSize = 499
	DefaultMultiShellMaxBuffer = 500
	DefaultMultiShellInterval  = 0.05 // minutes
	DefaultLoggingLevel        = "INFO"
)

// MinEnabledInterval is the smallest autosend period that still arms the
// timer; anything below it disables autoflush.
const MinEnabledInterval = 0.01 // minutes

type Config struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// TimeoutSec bounds every HTTP call except the reachability probe,
	// which carries its own hardcoded bound.
	TimeoutSec int `yaml:"timeout"`

	// DataDir is the root for the offline spool, the logs, and the legacy
	// properties file. Defaults to ~/.hackystat/sensorshell.
	DataDir string `yaml:"data_dir"`

	AutoSend    AutoSendConfig    `yaml:"autosend"`
	Offline     OfflineConfig     `yaml:"offline"`
	StateChange StateChangeConfig `yaml:"statechange"`
	MultiShell  MultiShellConfig  `yaml:"multishell"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// warnings collected while replacing invalid optional values with
	// defaults; logged by the shell once a logger exists.
	warnings []string
}

// AutoSendConfig controls the single-shell flush triggers. Zero is
// meaningful for both knobs (timer disabled, size trigger disabled), so
// absent values are modeled as nil.
type AutoSendConfig struct {
	TimeInterval *float64 `yaml:"time_interval"` // minutes
	MaxBuffer    *int     `yaml:"max_buffer"`
}

type OfflineConfig struct {
	CacheEnabled    *bool `yaml:"cache_enabled"`
	RecoveryEnabled *bool `yaml:"recovery_enabled"`
}

// StateChangeConfig holds the advisory wakeup period for statechange-driven
// sensors. The core never enforces it.
type StateChangeConfig struct {
	IntervalSec int `yaml:"interval"`
}

type MultiShellConfig struct {
	Enabled      bool     `yaml:"enabled"`
	NumShells    int      `yaml:"num_shells"`
	BatchSize    *int     `yaml:"batch_size"`
	MaxBuffer    int      `yaml:"max_buffer"`
	TimeInterval *float64 `yaml:"autosend_time_interval"` // minutes
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures the optional Prometheus endpoint. An empty
// address leaves it off.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// New returns a Config with the three required values and defaults for
// everything else.
func New(host, user, password string) *Config {
	cfg := &Config{Host: host, User: user, Password: password}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration from disk, applies defaults, and
// validates the required keys.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeoutSec < 1 {
		if c.TimeoutSec != 0 {
			c.warnf("timeout %d below minimum, using %d", c.TimeoutSec, DefaultTimeoutSec)
		}
		c.TimeoutSec = DefaultTimeoutSec
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.AutoSend.TimeInterval == nil {
		c.AutoSend.TimeInterval = float64Ptr(DefaultAutoSendInterval)
	} else if *c.AutoSend.TimeInterval < 0 {
		c.warnf("autosend.time_interval %v is negative, using %v",
			*c.AutoSend.TimeInterval, DefaultAutoSendInterval)
		c.AutoSend.TimeInterval = float64Ptr(DefaultAutoSendInterval)
	}
	if c.AutoSend.MaxBuffer == nil {
		c.AutoSend.MaxBuffer = intPtr(DefaultAutoSendMaxBuffer)
	} else if *c.AutoSend.MaxBuffer < 0 {
		c.warnf("autosend.max_buffer %d is negative, using %d",
			*c.AutoSend.MaxBuffer, DefaultAutoSendMaxBuffer)
		c.AutoSend.MaxBuffer = intPtr(DefaultAutoSendMaxBuffer)
	}
	if c.Offline.CacheEnabled == nil {
		c.Offline.CacheEnabled = boolPtr(true)
	}
	if c.Offline.RecoveryEnabled == nil {
		c.Offline.RecoveryEnabled = boolPtr(true)
	}
	if c.StateChange.IntervalSec < 1 {
		if c.StateChange.IntervalSec != 0 {
			c.warnf("statechange.interval %d below minimum, using %d",
				c.StateChange.IntervalSec, DefaultStateChangeInterval)
		}
		c.StateChange.IntervalSec = DefaultStateChangeInterval
	}
	if c.MultiShell.NumShells < 1 {
		if c.MultiShell.NumShells != 0 {
			c.warnf("multishell.num_shells %d below minimum, using %d",
				c.MultiShell.NumShells, DefaultMultiShellNumShells)
		}
		c.MultiShell.NumShells = DefaultMultiShellNumShells
	}
	if c.MultiShell.BatchSize == nil {
		c.MultiShell.BatchSize = intPtr(DefaultMultiShellBatchSize)
	} else if *c.MultiShell.BatchSize < 0 {
		c.warnf("multishell.batch_size %d is negative, using %d",
			*c.MultiShell.BatchSize, DefaultMultiShellBatchSize)
		c.MultiShell.BatchSize = intPtr(DefaultMultiShellBatchSize)
	}
	if c.MultiShell.MaxBuffer < 1 {
		if c.MultiShell.MaxBuffer != 0 {
			c.warnf("multishell.max_buffer %d below minimum, using %d",
				c.MultiShell.MaxBuffer, DefaultMultiShellMaxBuffer)
		}
		c.MultiShell.MaxBuffer = DefaultMultiShellMaxBuffer
	}
	if c.MultiShell.TimeInterval == nil {
		c.MultiShell.TimeInterval = float64Ptr(DefaultMultiShellInterval)
	} else if *c.MultiShell.TimeInterval < 0 {
		c.warnf("multishell.autosend_time_interval %v is negative, using %v",
			*c.MultiShell.TimeInterval, DefaultMultiShellInterval)
		c.MultiShell.TimeInterval = float64Ptr(DefaultMultiShellInterval)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLoggingLevel
	}
	if c.Host != "" && !strings.HasSuffix(c.Host, "/") {
		c.Host += "/"
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: required keys missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Timeout is the per-call HTTP deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// OfflineCacheEnabled reports whether transmission failures spool to disk.
func (c *Config) OfflineCacheEnabled() bool {
	return c.Offline.CacheEnabled == nil || *c.Offline.CacheEnabled
}

// OfflineRecoveryEnabled reports whether startup replays the spool.
func (c *Config) OfflineRecoveryEnabled() bool {
	return c.Offline.RecoveryEnabled == nil || *c.Offline.RecoveryEnabled
}

// AutoSendInterval returns the effective autoflush period: the multishell
// interval when multishell is enabled, the single-shell one otherwise.
// Zero means the timer is disabled.
func (c *Config) AutoSendInterval() time.Duration {
	minutes := DefaultAutoSendInterval
	if c.MultiShell.Enabled {
		minutes = DefaultMultiShellInterval
		if c.MultiShell.TimeInterval != nil {
			minutes = *c.MultiShell.TimeInterval
		}
	} else if c.AutoSend.TimeInterval != nil {
		minutes = *c.AutoSend.TimeInterval
	}
	return IntervalFromMinutes(minutes)
}

// AutoSendMaxBuffer returns the effective buffer size that triggers a
// synchronous flush, with the multishell override applied. Zero disables
// the size trigger.
func (c *Config) AutoSendMaxBuffer() int {
	if c.MultiShell.Enabled {
		return c.MultiShell.MaxBuffer
	}
	if c.AutoSend.MaxBuffer != nil {
		return *c.AutoSend.MaxBuffer
	}
	return DefaultAutoSendMaxBuffer
}

// MultiShellBatchSize is the number of consecutive adds routed to one child
// shell. Zero selects random routing.
func (c *Config) MultiShellBatchSize() int {
	if c.MultiShell.BatchSize != nil {
		return *c.MultiShell.BatchSize
	}
	return DefaultMultiShellBatchSize
}

// OfflineDir is where spooled batches live.
func (c *Config) OfflineDir() string {
	return filepath.Join(c.DataDir, "offline")
}

// LogDir is where per-tool log files live.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// Warnings returns the messages collected while invalid optional values
// were replaced with defaults.
func (c *Config) Warnings() []string {
	return c.warnings
}

// Clone returns a deep copy, so derived shells (recovery helpers, multi
// children) can vary settings without aliasing the caller's Config.
func (c *Config) Clone() *Config {
	dup := *c
	dup.warnings = nil
	dup.AutoSend.TimeInterval = clonePtr(c.AutoSend.TimeInterval)
	dup.AutoSend.MaxBuffer = clonePtr(c.AutoSend.MaxBuffer)
	dup.Offline.CacheEnabled = clonePtr(c.Offline.CacheEnabled)
	dup.Offline.RecoveryEnabled = clonePtr(c.Offline.RecoveryEnabled)
	dup.MultiShell.BatchSize = clonePtr(c.MultiShell.BatchSize)
	dup.MultiShell.TimeInterval = clonePtr(c.MultiShell.TimeInterval)
	return &dup
}

// DefaultDataDir is ~/.hackystat/sensorshell, falling back to the working
// directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".hackystat", "sensorshell")
	}
	return filepath.Join(home, ".hackystat", "sensorshell")
}

// DefaultPropertiesPath is the legacy flat-file location inside the default
// data directory.
func DefaultPropertiesPath() string {
	return filepath.Join(DefaultDataDir(), "sensorshell.properties")
}

// IntervalFromMinutes converts a fractional-minute setting to a Duration,
// treating anything below MinEnabledInterval as disabled.
func IntervalFromMinutes(minutes float64) time.Duration {
	if minutes < MinEnabledInterval {
		return 0
	}
	return time.Duration(minutes * float64(time.Minute))
}

func (c *Config) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }
func boolPtr(v bool) *bool          { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
