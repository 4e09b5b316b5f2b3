package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Property keys of the legacy flat sensorshell.properties format. Sensors
// installed by older tooling still write this file, so both formats load
// into the same Config.
const (
	PropHost                   = "sensorshell.sensorbase.host"
	PropUser                   = "sensorshell.sensorbase.user"
	PropPassword               = "sensorshell.sensorbase.password"
	PropTimeout                = "sensorshell.timeout"
	PropAutoSendInterval       = "sensorshell.autosend.timeinterval"
	PropAutoSendMaxBuffer      = "sensorshell.autosend.maxbuffer"
	PropOfflineCacheEnabled    = "sensorshell.offline.cache.enabled"
	PropOfflineRecoveryEnabled = "sensorshell.offline.recovery.enabled"
	PropStateChangeInterval    = "sensorshell.statechange.interval"
	PropMultiShellEnabled      = "sensorshell.multishell.enabled"
	PropMultiShellNumShells    = "sensorshell.multishell.numshells"
	PropMultiShellBatchSize    = "sensorshell.multishell.batchsize"
	PropMultiShellMaxBuffer    = "sensorshell.multishell.maxbuffer"
	PropMultiShellInterval     = "sensorshell.multishell.autosend.timeinterval"
	PropLoggingLevel           = "sensorshell.logging.level"
	PropDataDir                = "sensorshell.data.dir"
	PropMetricsAddr            = "sensorshell.metrics.addr"
)

// LoadProperties reads the legacy key=value properties format. Lines
// starting with '#' or '!' are comments. Unknown keys are ignored; invalid
// values are recorded as warnings and replaced by defaults, matching the
// YAML loader's behavior.
func LoadProperties(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	props := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 1 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		props[key] = strings.TrimSpace(line[eq+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		Host:     props[PropHost],
		User:     props[PropUser],
		Password: props[PropPassword],
		DataDir:  props[PropDataDir],
	}
	cfg.Metrics.Addr = props[PropMetricsAddr]
	cfg.Logging.Level = props[PropLoggingLevel]

	cfg.setInt(props, PropTimeout, &cfg.TimeoutSec)
	cfg.setFloatPtr(props, PropAutoSendInterval, &cfg.AutoSend.TimeInterval)
	cfg.setIntPtr(props, PropAutoSendMaxBuffer, &cfg.AutoSend.MaxBuffer)
	cfg.setBoolPtr(props, PropOfflineCacheEnabled, &cfg.Offline.CacheEnabled)
	cfg.setBoolPtr(props, PropOfflineRecoveryEnabled, &cfg.Offline.RecoveryEnabled)
	cfg.setInt(props, PropStateChangeInterval, &cfg.StateChange.IntervalSec)
	cfg.setInt(props, PropMultiShellNumShells, &cfg.MultiShell.NumShells)
	cfg.setIntPtr(props, PropMultiShellBatchSize, &cfg.MultiShell.BatchSize)
	cfg.setInt(props, PropMultiShellMaxBuffer, &cfg.MultiShell.MaxBuffer)
	cfg.setFloatPtr(props, PropMultiShellInterval, &cfg.MultiShell.TimeInterval)
	if v, ok := props[PropMultiShellEnabled]; ok {
		cfg.MultiShell.Enabled = strings.EqualFold(v, "true")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return cfg, nil
}

func (c *Config) setInt(props map[string]string, key string, dst *int) {
	v, ok := props[key]
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.warnf("%s %q is not an integer, using default", key, v)
		return
	}
	*dst = n
}

func (c *Config) setIntPtr(props map[string]string, key string, dst **int) {
	v, ok := props[key]
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.warnf("%s %q is not an integer, using default", key, v)
		return
	}
	*dst = intPtr(n)
}

func (c *Config) setFloatPtr(props map[string]string, key string, dst **float64) {
	v, ok := props[key]
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.warnf("%s %q is not a number, using default", key, v)
		return
	}
	*dst = float64Ptr(f)
}

func (c *Config) setBoolPtr(props map[string]string, key string, dst **bool) {
	v, ok := props[key]
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		c.warnf("%s %q is not a boolean, using default", key, v)
		return
	}
	*dst = boolPtr(b)
}
