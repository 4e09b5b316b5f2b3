package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
host: http://localhost:9876/sensorbase
user: johnson@hawaii.edu
password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.TimeoutSec != DefaultTimeoutSec {
		t.Fatalf("expected timeout default %d, got %d", DefaultTimeoutSec, cfg.TimeoutSec)
	}
	if got := cfg.AutoSendInterval(); got != time.Minute {
		t.Fatalf("expected 1 minute autosend default, got %v", got)
	}
	if got := cfg.AutoSendMaxBuffer(); got != DefaultAutoSendMaxBuffer {
		t.Fatalf("expected maxbuffer default %d, got %d", DefaultAutoSendMaxBuffer, got)
	}
	if !cfg.OfflineCacheEnabled() || !cfg.OfflineRecoveryEnabled() {
		t.Fatal("offline caching and recovery default to enabled")
	}
	if cfg.MultiShell.Enabled {
		t.Fatal("multishell defaults to disabled")
	}
	if cfg.StateChange.IntervalSec != DefaultStateChangeInterval {
		t.Fatalf("expected statechange default %d, got %d",
			DefaultStateChangeInterval, cfg.StateChange.IntervalSec)
	}
	if cfg.Logging.Level != "INFO" {
		t.Fatalf("expected INFO logging default, got %q", cfg.Logging.Level)
	}
}

func TestLoadEnforcesTrailingSlash(t *testing.T) {
	path := writeFile(t, "config.yaml", `
host: http://localhost:9876/sensorbase
user: u
password: p
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Host != "http://localhost:9876/sensorbase/" {
		t.Fatalf("host did not gain trailing slash: %q", cfg.Host)
	}
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	path := writeFile(t, "config.yaml", `
host: http://localhost:9876/sensorbase
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing user and password")
	}
	if !strings.Contains(err.Error(), "user") || !strings.Contains(err.Error(), "password") {
		t.Fatalf("error should name the missing keys: %v", err)
	}
}

func TestInvalidValuesFallBackWithWarnings(t *testing.T) {
	path := writeFile(t, "config.yaml", `
host: http://localhost:9876/sensorbase
user: u
password: p
timeout: -5
statechange:
  interval: -1
multishell:
  num_shells: -2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TimeoutSec != DefaultTimeoutSec {
		t.Fatalf("invalid timeout should fall back, got %d", cfg.TimeoutSec)
	}
	if cfg.StateChange.IntervalSec != DefaultStateChangeInterval {
		t.Fatalf("invalid statechange interval should fall back, got %d", cfg.StateChange.IntervalSec)
	}
	if cfg.MultiShell.NumShells != DefaultMultiShellNumShells {
		t.Fatalf("invalid numshells should fall back, got %d", cfg.MultiShell.NumShells)
	}
	if len(cfg.Warnings()) != 3 {
		t.Fatalf("expected 3 warnings, got %v", cfg.Warnings())
	}
}

func TestMultiShellOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
host: http://localhost:9876/sensorbase
user: u
password: p
autosend:
  time_interval: 5.0
  max_buffer: 100
multishell:
  enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if got := cfg.AutoSendInterval(); got != 3*time.Second {
		t.Fatalf("multishell interval override expected 3s (0.05 min), got %v", got)
	}
	if got := cfg.AutoSendMaxBuffer(); got != DefaultMultiShellMaxBuffer {
		t.Fatalf("multishell maxbuffer override expected %d, got %d",
			DefaultMultiShellMaxBuffer, got)
	}
	// The default maxbuffer must stay above the batch size so the timer
	// wins over the blocking size trigger.
	if cfg.MultiShellBatchSize() >= cfg.AutoSendMaxBuffer() {
		t.Fatalf("batch size %d must be below maxbuffer %d",
			cfg.MultiShellBatchSize(), cfg.AutoSendMaxBuffer())
	}
}

func TestZeroDisablesTriggers(t *testing.T) {
	path := writeFile(t, "config.yaml", `
host: http://localhost:9876/sensorbase
user: u
password: p
autosend:
  time_interval: 0.0
  max_buffer: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.AutoSendInterval(); got != 0 {
		t.Fatalf("zero interval should disable the timer, got %v", got)
	}
	if got := cfg.AutoSendMaxBuffer(); got != 0 {
		t.Fatalf("zero maxbuffer should disable the size trigger, got %d", got)
	}
	if len(cfg.Warnings()) != 0 {
		t.Fatalf("zero is a valid setting, got warnings %v", cfg.Warnings())
	}
}

func TestIntervalFromMinutes(t *testing.T) {
	if IntervalFromMinutes(0.009) != 0 {
		t.Fatal("sub-threshold interval should disable the timer")
	}
	if got := IntervalFromMinutes(0.05); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
	if got := IntervalFromMinutes(1.0); got != time.Minute {
		t.Fatalf("expected 1m, got %v", got)
	}
}

func TestLoadProperties(t *testing.T) {
	path := writeFile(t, "sensorshell.properties", `
# Hackystat sensorshell settings
sensorshell.sensorbase.host=http://dasha.ics.hawaii.edu:9876/sensorbase
sensorshell.sensorbase.user=johnson@hawaii.edu
sensorshell.sensorbase.password=xykdclwck
sensorshell.timeout=30
sensorshell.autosend.timeinterval=2.5
sensorshell.autosend.maxbuffer=100
sensorshell.offline.cache.enabled=false
sensorshell.multishell.enabled=true
sensorshell.multishell.numshells=4
`)
	cfg, err := LoadProperties(path)
	if err != nil {
		t.Fatalf("load properties: %v", err)
	}

	if cfg.Host != "http://dasha.ics.hawaii.edu:9876/sensorbase/" {
		t.Fatalf("unexpected host %q", cfg.Host)
	}
	if cfg.TimeoutSec != 30 {
		t.Fatalf("expected timeout 30, got %d", cfg.TimeoutSec)
	}
	if cfg.OfflineCacheEnabled() {
		t.Fatal("cache should be disabled")
	}
	if !cfg.MultiShell.Enabled || cfg.MultiShell.NumShells != 4 {
		t.Fatalf("multishell settings not honored: %+v", cfg.MultiShell)
	}
	// Multishell enabled, so the single-shell interval is overridden.
	if got := cfg.AutoSendInterval(); got != 3*time.Second {
		t.Fatalf("expected multishell interval 3s, got %v", got)
	}
}

func TestLoadPropertiesInvalidValueWarns(t *testing.T) {
	path := writeFile(t, "sensorshell.properties", `
sensorshell.sensorbase.host=http://localhost:9876/
sensorshell.sensorbase.user=u
sensorshell.sensorbase.password=p
sensorshell.timeout=banana
`)
	cfg, err := LoadProperties(path)
	if err != nil {
		t.Fatalf("load properties: %v", err)
	}
	if cfg.TimeoutSec != DefaultTimeoutSec {
		t.Fatalf("invalid timeout should fall back, got %d", cfg.TimeoutSec)
	}
	if len(cfg.Warnings()) == 0 {
		t.Fatal("expected a warning for the unparseable timeout")
	}
}

func TestLoadPropertiesMissingRequired(t *testing.T) {
	path := writeFile(t, "sensorshell.properties", `
sensorshell.timeout=10
`)
	if _, err := LoadProperties(path); err == nil {
		t.Fatal("expected error for missing required properties")
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := New("http://localhost/", "u", "p")
	dup := cfg.Clone()

	disabled := false
	dup.Offline.CacheEnabled = &disabled
	newInterval := 9.0
	*dup.AutoSend.TimeInterval = newInterval

	if !cfg.OfflineCacheEnabled() {
		t.Fatal("mutating the clone must not affect the original")
	}
	if *cfg.AutoSend.TimeInterval == newInterval {
		t.Fatal("clone shares the interval pointer with the original")
	}
}
