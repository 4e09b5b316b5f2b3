package shell

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/observability"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/probe"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/server"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/spool"
	"github.com/hackystat/hackystat-sensor-shell/internal/app/config"
	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// Multi fans adds out over N single shells sharing one client, spool, and
// log backend. While one child's flush is blocked in HTTP, the others stay
// addable, which is where the throughput gain comes from.
type Multi struct {
	cfg    *config.Config
	obs    ports.Observability
	spool  ports.Spool
	shells []*Single

	closeObs  bool
	startTime time.Time

	// mu guards the dispatcher state and the statechange memo.
	mu           sync.Mutex
	st           shellState
	batchCounter int
	curr         int
	memo         stateChangeMemo
}

// NewMulti builds numshells children with the multishell overrides applied
// and replays the shared spool once. Children never run recovery
// themselves.
func NewMulti(cfg *config.Config, tool string, deps Dependencies) (*Multi, error) {
	if cfg == nil {
		return nil, fmt.Errorf("shell: config is required")
	}
	if tool == "" {
		tool = "tool"
	}
	numShells := cfg.MultiShell.NumShells
	if numShells < 1 {
		return nil, fmt.Errorf("shell: multishell.num_shells must be at least 1, got %d", numShells)
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

	childCfg := cfg.Clone()
	noRecovery := false
	childCfg.Offline.RecoveryEnabled = &noRecovery

	childDeps := Dependencies{Client: client, Spool: sp, Probe: pr, Obs: obs}
	shells := make([]*Single, 0, numShells)
	for i := 0; i < numShells; i++ {
		child, err := newSingle(childCfg, tool, childDeps, false)
		if err != nil {
			for _, built := range shells {
				_ = built.Quit()
			}
			if closeObs {
				_ = obs.Close()
			}
			return nil, fmt.Errorf("shell: child %d: %w", i, err)
		}
		shells = append(shells, child)
	}

	m := &Multi{
		cfg:       cfg,
		obs:       obs,
		spool:     sp,
		shells:    shells,
		closeObs:  closeObs,
		startTime: time.Now(),
		st:        stateRunning,
	}
	obs.LogInfo("multi-shell started",
		ports.Field{Key: "shells", Value: numShells},
		ports.Field{Key: "batch_size", Value: cfg.MultiShellBatchSize()})

	if cfg.OfflineRecoveryEnabled() {
		shells[0].recoverOffline()
	}
	return m, nil
}

// Add routes the record to the current child per the selection policy.
func (m *Multi) Add(rec domain.Record) error {
	child, err := m.nextShell()
	if err != nil {
		return err
	}
	return child.Add(rec)
}

// AddKeyValues routes a key-value add through the same dispatcher.
func (m *Multi) AddKeyValues(keyVals map[string]string) error {
	child, err := m.nextShell()
	if err != nil {
		return err
	}
	return child.AddKeyValues(keyVals)
}

// StateChange applies dedup at the multi-shell level, so the memo is not
// defeated by round-robin routing, then dispatches the resulting add.
func (m *Multi) StateChange(checksum int64, keyVals map[string]string) error {
	resource := keyVals[domain.FieldResource]

	m.mu.Lock()
	if m.st != stateRunning {
		m.mu.Unlock()
		return ErrShellClosed
	}
	changed := resource != m.memo.resource || checksum != m.memo.checksum
	m.memo = stateChangeMemo{resource: resource, checksum: checksum}
	m.mu.Unlock()

	if !changed {
		return nil
	}
	return m.AddKeyValues(keyVals)
}

// Send flushes every child concurrently and sums the acknowledged counts.
func (m *Multi) Send() (int, error) {
	var total atomic.Int64
	var g errgroup.Group
	for _, child := range m.shells {
		g.Go(func() error {
			n, err := child.Send()
			total.Add(int64(n))
			return err
		})
	}
	err := g.Wait()
	return int(total.Load()), err
}

// Ping delegates to the first child.
func (m *Multi) Ping() bool {
	return m.shells[0].Ping()
}

// Quit terminates every child; a failure in one does not short-circuit the
// others. The collected errors are combined.
func (m *Multi) Quit() error {
	m.mu.Lock()
	if m.st != stateRunning {
		m.mu.Unlock()
		return nil
	}
	m.st = stateTerminating
	m.mu.Unlock()

	var errs []error
	for i, child := range m.shells {
		if err := child.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("child %d: %w", i, err))
		}
	}

	m.mu.Lock()
	m.st = stateTerminated
	m.mu.Unlock()

	m.obs.LogInfo("multi-shell terminated",
		ports.Field{Key: "total_sent", Value: m.TotalSent()})
	if m.closeObs {
		if err := m.obs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasOfflineData reports whether any child spooled a batch.
func (m *Multi) HasOfflineData() bool {
	return m.spool.HasOfflineData()
}

// TotalSent sums the acknowledged counts across all children.
func (m *Multi) TotalSent() int64 {
	var total int64
	for _, child := range m.shells {
		total += child.TotalSent()
	}
	return total
}

// StartTime is when the multi-shell was constructed.
func (m *Multi) StartTime() time.Time { return m.startTime }

// NumShells returns the child count.
func (m *Multi) NumShells() int { return len(m.shells) }

// Obs exposes the shared observability backend.
func (m *Multi) Obs() ports.Observability { return m.obs }

// SetAutoSendInterval replaces the autoflush period on every child.
func (m *Multi) SetAutoSendInterval(minutes float64) {
	for _, child := range m.shells {
		child.SetAutoSendInterval(minutes)
	}
}

// nextShell advances the dispatcher. With batch size B, the add that
// overflows the counter is counted as the first of the next child's batch,
// so every child receives exactly B consecutive records. A batch size of
// zero picks a child uniformly at random per call; that strategy measures
// worse and is retained for comparison runs only.
func (m *Multi) nextShell() (*Single, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st != stateRunning {
		return nil, ErrShellClosed
	}
	batchSize := m.cfg.MultiShellBatchSize()
	if batchSize == 0 {
		return m.shells[rand.IntN(len(m.shells))], nil
	}
	m.batchCounter++
	if m.batchCounter > batchSize {
		m.batchCounter = 1
		m.curr = (m.curr + 1) % len(m.shells)
	}
	return m.shells[m.curr], nil
}

var _ ports.Shell = (*Multi)(nil)
