package sensorshell

import (
	"fmt"
	"strings"
)

// Builder is a convenience wrapper: load a configuration, stack option
// overrides, then Start a shell, without touching the underlying wiring.
type Builder struct {
	cfg  *Config
	opts []Option
}

// Conf loads the configuration at path — YAML, or the legacy properties
// format when the file ends in .properties — and returns a Builder.
func Conf(path string, opts ...Option) (*Builder, error) {
	var (
		cfg *Config
		err error
	)
	if strings.HasSuffix(path, ".properties") {
		cfg, err = LoadProperties(path)
	} else {
		cfg, err = Load(path)
	}
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Builder from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sensorshell: config is required")
	}
	b := &Builder{cfg: cfg}
	b.Options(opts...)
	return b, nil
}

// Config returns the underlying configuration so callers can tweak it
// before starting.
func (b *Builder) Config() *Config {
	if b == nil {
		return nil
	}
	return b.cfg
}

// Options appends further overrides.
func (b *Builder) Options(opts ...Option) *Builder {
	if b == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			b.opts = append(b.opts, opt)
		}
	}
	return b
}

// Start builds the shell selected by the configuration.
func (b *Builder) Start() (Shell, error) {
	if b == nil {
		return nil, fmt.Errorf("sensorshell: builder is nil")
	}
	return New(b.cfg, b.opts...)
}
