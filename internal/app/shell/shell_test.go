package shell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/observability"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/probe"
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/spool"
	"github.com/hackystat/hackystat-sensor-shell/internal/app/config"
	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// fakeServer is an in-memory ingestion server: it records acknowledged
// batches and can be driven unreachable or made to fail uploads.
type fakeServer struct {
	mu          sync.Mutex
	batches     []domain.Batch
	reachable   bool
	failPuts    bool
	succeedPuts int // when > 0, allow this many successes before failing
	putDelay    time.Duration
}

func newFakeServer() *fakeServer {
	return &fakeServer{reachable: true}
}

func (f *fakeServer) Ping(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

func (f *fakeServer) IsRegistered(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

func (f *fakeServer) PutBatch(ctx context.Context, batch domain.Batch) error {
	if d := f.delay(); d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return fmt.Errorf("fake server: connection refused")
	}
	if f.failPuts {
		if f.succeedPuts == 0 {
			return fmt.Errorf("fake server: internal error")
		}
		f.succeedPuts--
	}
	cp := make(domain.Batch, len(batch))
	copy(cp, batch)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeServer) Host() string { return "http://fake/" }

func (f *fakeServer) delay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putDelay
}

func (f *fakeServer) setReachable(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reachable = ok
}

func (f *fakeServer) records() []domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Record
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

func (f *fakeServer) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

var _ ports.IngestClient = (*fakeServer)(nil)

// testConfig returns a config with the timer disabled, the size trigger
// off, and all on-disk state under a temp dir.
func testConfig(dataDir string) *config.Config {
	cfg := config.New("http://localhost:9876/sensorbase", "test@example.com", "secret")
	cfg.DataDir = dataDir
	zeroInterval := 0.0
	cfg.AutoSend.TimeInterval = &zeroInterval
	zeroBuffer := 0
	cfg.AutoSend.MaxBuffer = &zeroBuffer
	return cfg
}

type testEnv struct {
	cfg    *config.Config
	server *fakeServer
	spool  *spool.Store
	deps   Dependencies
}

func newTestEnv(dataDir string) (*testEnv, error) {
	cfg := testConfig(dataDir)
	srv := newFakeServer()
	store, err := spool.New(cfg.OfflineDir(), observability.Nop())
	if err != nil {
		return nil, err
	}
	return &testEnv{
		cfg:    cfg,
		server: srv,
		spool:  store,
		deps: Dependencies{
			Client: srv,
			Spool:  store,
			Probe:  probe.New(srv, time.Second),
			Obs:    observability.Nop(),
		},
	}, nil
}

func testRecord(resource string) domain.Record {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Record{
		Timestamp:      ts,
		Runtime:        ts,
		Owner:          "test@example.com",
		Tool:           "Eclipse",
		SensorDataType: "DevEvent",
		Resource:       resource,
	}
}
