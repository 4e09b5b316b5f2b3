// Package sensorshell is the construction surface sensors use: it loads
// configuration, picks the single or multi pipeline, and wires the default
// adapters, with options to override any of them.
package sensorshell

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackystat/hackystat-sensor-shell/internal/app/config"
	"github.com/hackystat/hackystat-sensor-shell/internal/app/shell"
)

// Option overrides one collaborator during construction.
type Option func(*overrides)

type overrides struct {
	tool   string
	client IngestClient
	spool  Spool
	probe  Reachability
	obs    Observability
}

// WithTool sets the tool name used for the shell's log file. Defaults to
// "tool".
func WithTool(tool string) Option {
	return func(o *overrides) { o.tool = tool }
}

// WithClient injects a custom ingestion client.
func WithClient(c IngestClient) Option {
	return func(o *overrides) {
		if c != nil {
			o.client = c
		}
	}
}

// WithSpool injects a custom spool implementation.
func WithSpool(s Spool) Option {
	return func(o *overrides) {
		if s != nil {
			o.spool = s
		}
	}
}

// WithProbe injects a custom reachability probe.
func WithProbe(p Reachability) Option {
	return func(o *overrides) {
		if p != nil {
			o.probe = p
		}
	}
}

// WithObservability plugs in a custom logging/metrics backend. The shell
// will not close an injected backend on quit.
func WithObservability(obs Observability) Option {
	return func(o *overrides) {
		if obs != nil {
			o.obs = obs
		}
	}
}

// Load reads a YAML configuration file.
func Load(path string) (*Config, error) {
	return config.Load(path)
}

// LoadProperties reads the legacy flat sensorshell.properties format.
func LoadProperties(path string) (*Config, error) {
	return config.LoadProperties(path)
}

// NewConfig builds a Config from the three required values, with defaults
// for everything else.
func NewConfig(host, user, password string) *Config {
	return config.New(host, user, password)
}

// DefaultPropertiesPath is ~/.hackystat/sensorshell/sensorshell.properties.
func DefaultPropertiesPath() string {
	return config.DefaultPropertiesPath()
}

// New builds a running shell from the configuration: the multi-shell when
// multishell.enabled is set, the single shell otherwise. This is the only
// construction path sensors should use.
func New(cfg *Config, opts ...Option) (Shell, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sensorshell: config is required")
	}

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	deps := shell.Dependencies{
		Client: ov.client,
		Spool:  ov.spool,
		Probe:  ov.probe,
		Obs:    ov.obs,
	}

	var (
		inner Shell
		err   error
	)
	if cfg.MultiShell.Enabled {
		inner, err = shell.NewMulti(cfg, ov.tool, deps)
	} else {
		inner, err = shell.NewSingle(cfg, ov.tool, deps)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Addr == "" {
		return inner, nil
	}
	return newRuntime(inner, cfg.Metrics.Addr), nil
}

// registryProvider is satisfied by the default observability backend; the
// /metrics route is only mounted when the shell's backend exposes one,
// while /healthz is always served.
type registryProvider interface {
	Registry() *prometheus.Registry
}

// runtime wraps a shell with the optional metrics endpoint so Quit tears
// both down.
type runtime struct {
	Shell
	metricsSrv *http.Server
}

func newRuntime(inner Shell, addr string) *runtime {
	rt := &runtime{Shell: inner}

	mux := http.NewServeMux()
	if reg, ok := innerRegistry(inner); ok {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rt.metricsSrv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		// The shell keeps running without the endpoint if the bind fails.
		_ = rt.metricsSrv.ListenAndServe()
	}()
	return rt
}

func innerRegistry(inner Shell) (*prometheus.Registry, bool) {
	type obsProvider interface{ Obs() Observability }
	op, ok := inner.(obsProvider)
	if !ok {
		return nil, false
	}
	rp, ok := op.Obs().(registryProvider)
	if !ok {
		return nil, false
	}
	return rp.Registry(), true
}

// SetAutoSendInterval forwards the runtime autosend adjustment used by the
// interactive shell's autosend command.
func (rt *runtime) SetAutoSendInterval(minutes float64) {
	if s, ok := rt.Shell.(interface{ SetAutoSendInterval(float64) }); ok {
		s.SetAutoSendInterval(minutes)
	}
}

func (rt *runtime) Quit() error {
	err := rt.Shell.Quit()
	if rt.metricsSrv != nil {
		closeErr := rt.metricsSrv.Close()
		if err == nil && closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			err = closeErr
		}
	}
	return err
}
