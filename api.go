package sensorshell

import (
	base "github.com/hackystat/hackystat-sensor-shell/pkg/sensorshell"
)

// Type aliases so sensors can import
// github.com/hackystat/hackystat-sensor-shell directly.
type (
	Config        = base.Config
	Shell         = base.Shell
	Record        = base.Record
	Property      = base.Property
	Batch         = base.Batch
	Builder       = base.Builder
	Option        = base.Option
	IngestClient  = base.IngestClient
	Spool         = base.Spool
	Reachability  = base.Reachability
	Observability = base.Observability
	Field         = base.Field
)

// Config helpers.
func Load(path string) (*Config, error) {
	return base.Load(path)
}

func LoadProperties(path string) (*Config, error) {
	return base.LoadProperties(path)
}

func NewConfig(host, user, password string) *Config {
	return base.NewConfig(host, user, password)
}

func DefaultPropertiesPath() string {
	return base.DefaultPropertiesPath()
}

// Shell construction.
func New(cfg *Config, opts ...Option) (Shell, error) {
	return base.New(cfg, opts...)
}

// Builder helpers.
func Conf(path string, opts ...Option) (*Builder, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...Option) (*Builder, error) {
	return base.ConfFromConfig(cfg, opts...)
}

// Option constructors.
func WithTool(tool string) Option {
	return base.WithTool(tool)
}

func WithClient(c IngestClient) Option {
	return base.WithClient(c)
}

func WithSpool(s Spool) Option {
	return base.WithSpool(s)
}

func WithProbe(p Reachability) Option {
	return base.WithProbe(p)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}
