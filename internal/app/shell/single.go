// Package shell implements the transmission pipelines: the buffered single
// shell with autoflush, offline spooling, and startup recovery, and the
// round-robin multi-shell built on top of it.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/observability"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/probe"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/server"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/spool"
	"github.com/hackystat/hackystat-sensor-shell/internal/app/config"
	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

var (
	// ErrShellClosed is returned by mutating operations on a terminated
	// shell.
	ErrShellClosed = errors.New("shell: shell is terminated")

	// ErrQuitFlush wraps a final-flush failure reported by Quit after
	// teardown has completed. Any spooled file persists.
	ErrQuitFlush = errors.New("shell: final flush failed")
)

// recoveryToolSuffix distinguishes the recovery helper's log file from the
// main shell's.
const recoveryToolSuffix = "-offline-recovery"

type shellState int

const (
	stateRunning shellState = iota
	stateTerminating
	stateTerminated
)

// stateChangeMemo is the (resource, checksum) pair remembered between
// statechange calls.
type stateChangeMemo struct {
	resource string
	checksum int64
}

// Dependencies lets callers override any collaborator. Nil fields get the
// default adapter built from the Config.
type Dependencies struct {
	Client ports.IngestClient
	Spool  ports.Spool
	Probe  ports.Reachability
	Obs    ports.Observability
}

// Single owns one buffer, one spool, one probe, and one autoflush timer.
// One mutex guards the buffer, the statechange memo, the sent counter, and
// the lifecycle state; it is never held across an HTTP call.
type Single struct {
	cfg    *config.Config
	tool   string
	client ports.IngestClient
	spool  ports.Spool
	probe  ports.Reachability
	obs    ports.Observability

	// closeObs marks whether Quit owns the observability backend. Children
	// of a multi-shell share one backend and must not close it.
	closeObs bool

	mu        sync.Mutex
	st        shellState
	buffer    []domain.Record
	memo      stateChangeMemo
	totalSent int64
	startTime time.Time

	// flushGate admits one in-flight flush at a time. Explicit sends block
	// on it; timer ticks skip when it is taken.
	flushGate chan struct{}

	lifecycleMu sync.Mutex
	timerStop   chan struct{}
	timerDone   chan struct{}
}

// NewSingle constructs a running shell and, when enabled and the host is
// reachable, replays any spooled batches before returning.
func NewSingle(cfg *config.Config, tool string, deps Dependencies) (*Single, error) {
	return newSingle(cfg, tool, deps, cfg != nil && cfg.OfflineRecoveryEnabled())
}

func newSingle(cfg *config.Config, tool string, deps Dependencies, replaySpool bool) (*Single, error) {
	if cfg == nil {
		return nil, fmt.Errorf("shell: config is required")
	}
	if tool == "" {
		tool = "tool"
	}

	obs := deps.Obs
	closeObs := false
	if obs == nil {
		t, err := observability.New(cfg.LogDir(), tool, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		obs = t
		closeObs = true
	}

	client := deps.Client
	if client == nil {
		client = server.NewClient(cfg.Host, cfg.User, cfg.Password, cfg.Timeout())
	}

	sp := deps.Spool
	if sp == nil {
		st, err := spool.New(cfg.OfflineDir(), obs)
		if err != nil {
			if closeObs {
				_ = obs.Close()
			}
			return nil, err
		}
		sp = st
	}

	pr := deps.Probe
	if pr == nil {
		pr = probe.New(client, probe.DefaultTimeout)
	}

	s := &Single{
		cfg:       cfg,
		tool:      tool,
		client:    client,
		spool:     sp,
		probe:     pr,
		obs:       obs,
		closeObs:  closeObs,
		st:        stateRunning,
		startTime: time.Now(),
		flushGate: make(chan struct{}, 1),
	}

	for _, w := range cfg.Warnings() {
		obs.LogWarn(w)
	}
	obs.LogInfo("shell started",
		ports.Field{Key: "host", Value: cfg.Host},
		ports.Field{Key: "user", Value: cfg.User})

	s.startAutoFlush(cfg.AutoSendInterval())

	if replaySpool {
		s.recoverOffline()
	}
	return s, nil
}

// Tool returns the tool name this shell logs under.
func (s *Single) Tool() string { return s.tool }

// Obs exposes the observability backend, so the façade can mount its
// metrics registry on the optional HTTP endpoint.
func (s *Single) Obs() ports.Observability { return s.obs }

// Config returns the shell's configuration.
func (s *Single) Config() *config.Config { return s.cfg }

// Add validates the record and appends it to the buffer. Reaching the
// effective maxbuffer triggers a synchronous flush before Add returns; a
// maxbuffer of zero disables that trigger.
func (s *Single) Add(rec domain.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return ErrShellClosed
	}
	s.buffer = append(s.buffer, rec)
	size := len(s.buffer)
	s.mu.Unlock()

	s.obs.SetGauge(observability.MetricBufferLength, float64(size))

	if max := s.cfg.AutoSendMaxBuffer(); max > 0 && size >= max {
		_, _ = s.Send()
	}
	return nil
}

// AddKeyValues builds a Record from the map, defaulting Owner to the
// configured user and Timestamp/Runtime to now, then delegates to Add.
func (s *Single) AddKeyValues(keyVals map[string]string) error {
	rec, err := domain.NewRecord(keyVals, s.cfg.User, time.Now())
	if err != nil {
		return err
	}
	return s.Add(rec)
}

// StateChange adds the key-value record iff the (resource, checksum) pair
// differs from the previous call. The memo is overwritten either way.
func (s *Single) StateChange(checksum int64, keyVals map[string]string) error {
	resource := keyVals[domain.FieldResource]

	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return ErrShellClosed
	}
	changed := resource != s.memo.resource || checksum != s.memo.checksum
	s.memo = stateChangeMemo{resource: resource, checksum: checksum}
	s.mu.Unlock()

	if !changed {
		s.obs.LogDebug("statechange suppressed",
			ports.Field{Key: "resource", Value: resource},
			ports.Field{Key: "checksum", Value: checksum})
		return nil
	}
	return s.AddKeyValues(keyVals)
}

// Send flushes the buffer synchronously. It returns the number of records
// the server acknowledged in this call; transmission and spool failures are
// logged and absorbed.
func (s *Single) Send() (int, error) {
	s.flushGate <- struct{}{}
	n, err := s.flush()
	<-s.flushGate
	if errors.Is(err, ErrShellClosed) {
		return n, err
	}
	return n, nil
}

// Ping reports whether the host answers the credential check within the
// probe's bound.
func (s *Single) Ping() bool {
	return s.probe.IsPingable()
}

// Quit stops the timer, flushes one final time, marks the shell
// terminated, and releases the log handle. A final-flush failure is
// reported after teardown completes; any spooled file persists.
func (s *Single) Quit() error {
	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return nil
	}
	s.st = stateTerminating
	s.mu.Unlock()

	s.lifecycleMu.Lock()
	s.stopAutoFlush()
	s.lifecycleMu.Unlock()

	s.flushGate <- struct{}{}
	_, ferr := s.flush()
	<-s.flushGate

	s.mu.Lock()
	s.st = stateTerminated
	total := s.totalSent
	s.mu.Unlock()

	if ferr != nil {
		s.obs.LogError("final flush failed", ferr)
	}
	s.obs.LogInfo("shell terminated", ports.Field{Key: "total_sent", Value: total})

	var cerr error
	if s.closeObs {
		cerr = s.obs.Close()
	}
	if ferr != nil {
		return fmt.Errorf("%w: %w", ErrQuitFlush, ferr)
	}
	return cerr
}

// HasOfflineData reports whether any batch was spooled during this shell's
// lifetime.
func (s *Single) HasOfflineData() bool {
	return s.spool.HasOfflineData()
}

// TotalSent is the number of records acknowledged by the server so far.
func (s *Single) TotalSent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSent
}

// StartTime is when the shell was constructed.
func (s *Single) StartTime() time.Time { return s.startTime }

// BufferLen is the number of records currently buffered.
func (s *Single) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// SetAutoSendInterval replaces the autoflush period at run time. Values
// below 0.01 minutes disable the timer.
func (s *Single) SetAutoSendInterval(minutes float64) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	s.stopAutoFlush()
	s.startAutoFlush(config.IntervalFromMinutes(minutes))
}

// flush implements the transmission step. The mutex is held only to detach
// the buffer and to update the counter, never across the HTTP call. The
// returned error is the inner failure Quit reports; Send absorbs it.
func (s *Single) flush() (int, error) {
	s.mu.Lock()
	if s.st == stateTerminated {
		s.mu.Unlock()
		return 0, ErrShellClosed
	}
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	batch := domain.Batch(s.buffer)
	s.buffer = nil
	s.mu.Unlock()

	s.obs.SetGauge(observability.MetricBufferLength, 0)

	if !s.probe.IsPingable() {
		s.obs.LogWarn("host not reachable", ports.Field{Key: "records", Value: len(batch)})
		return 0, s.divert(batch, nil)
	}

	start := time.Now()
	err := s.client.PutBatch(context.Background(), batch)
	if err == nil {
		s.obs.ObserveLatency(observability.MetricPutLatency, time.Since(start).Seconds())
		s.mu.Lock()
		s.totalSent += int64(len(batch))
		s.mu.Unlock()
		s.obs.IncCounter(observability.MetricRecordsSent, float64(len(batch)))
		s.obs.LogInfo("batch sent", ports.Field{Key: "records", Value: len(batch)})
		return len(batch), nil
	}

	s.obs.IncCounter(observability.MetricSendErrors, 1)
	s.obs.LogError("batch send failed", err, ports.Field{Key: "records", Value: len(batch)})
	return 0, s.divert(batch, err)
}

// divert routes an untransmitted batch to the spool, or drops it when
// caching is off. No retry happens here; the autoflush timer and startup
// recovery own retries.
func (s *Single) divert(batch domain.Batch, sendErr error) error {
	if s.cfg.OfflineCacheEnabled() {
		if err := s.spool.Store(batch); err != nil {
			s.obs.LogError("spool write failed, data lost", err,
				ports.Field{Key: "records", Value: len(batch)})
			s.obs.IncCounter(observability.MetricRecordsLost, float64(len(batch)))
			return errors.Join(sendErr, err)
		}
		s.obs.IncCounter(observability.MetricRecordsSpooled, float64(len(batch)))
		s.obs.IncCounter(observability.MetricBatchesSpooled, 1)
		return sendErr
	}
	s.obs.LogWarn("offline caching disabled, data lost",
		ports.Field{Key: "records", Value: len(batch)})
	s.obs.IncCounter(observability.MetricRecordsLost, float64(len(batch)))
	return sendErr
}

// tryFlush is the timer tick entry point: if a flush is already in flight,
// the tick is skipped rather than queued.
func (s *Single) tryFlush() {
	select {
	case s.flushGate <- struct{}{}:
	default:
		return
	}
	_, _ = s.flush()
	<-s.flushGate
}

// startAutoFlush arms the periodic flusher. A zero interval leaves it off.
// Callers other than the constructor hold lifecycleMu.
func (s *Single) startAutoFlush(interval time.Duration) {
	if interval <= 0 {
		s.obs.LogInfo("autosend disabled")
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.timerStop, s.timerDone = stop, done
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tryFlush()
			}
		}
	}()
	s.obs.LogInfo("autosend enabled", ports.Field{Key: "interval", Value: interval.String()})
}

func (s *Single) stopAutoFlush() {
	if s.timerStop == nil {
		return
	}
	close(s.timerStop)
	<-s.timerDone
	s.timerStop, s.timerDone = nil, nil
}

// dropBuffer discards buffered records. Used by recovery when a record of a
// spool file fails validation partway through the file.
func (s *Single) dropBuffer() {
	s.mu.Lock()
	s.buffer = nil
	s.mu.Unlock()
}

var _ ports.Shell = (*Single)(nil)
