// Package spool persists batches that could not be transmitted, one XML
// file per batch, named so lexicographic order matches creation order.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// filenameLayout yields names like 2026.08.06.14.23.05.117, strictly
// increasing for calls at least one millisecond apart.
const filenameLayout = "2006.01.02.15.04.05.000"

const spoolExt = ".xml"

// Store is a durable FIFO of batches in a single directory. The mutex
// serializes filename allocation, so concurrent callers sharing one Store
// (a multi-shell's children) never collide. Separate Store instances over
// the same directory do not coordinate.
type Store struct {
	mu         sync.Mutex
	dir        string
	obs        ports.Observability
	lastStamp  string
	lastSeq    int
	hasOffline bool
}

// New creates the spool directory if needed and returns a store over it.
func New(dir string, obs ports.Observability) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("spool: create %s: %w", dir, err)
	}
	return &Store{dir: dir, obs: obs}, nil
}

// Dir returns the spool directory.
func (s *Store) Dir() string { return s.dir }

// Store writes a non-empty batch to a new file. Files are written once and
// never mutated afterwards.
func (s *Store) Store(batch domain.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	data, err := batch.EncodeXML()
	if err != nil {
		return err
	}

	s.mu.Lock()
	name := s.nextNameLocked(time.Now())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("spool: write %s: %w", name, err)
	}
	s.hasOffline = true
	s.mu.Unlock()

	s.obs.LogInfo("stored batch offline",
		ports.Field{Key: "file", Value: name},
		ports.Field{Key: "records", Value: len(batch)})
	return nil
}

// nextNameLocked allocates the next filename. Within one millisecond a
// monotonic _NNN suffix breaks the tie; '_' sorts after '.', so suffixed
// names stay between the base name and the next millisecond.
func (s *Store) nextNameLocked(now time.Time) string {
	stamp := now.Format(filenameLayout)
	if stamp == s.lastStamp {
		s.lastSeq++
		return fmt.Sprintf("%s_%03d%s", stamp, s.lastSeq, spoolExt)
	}
	s.lastStamp = stamp
	s.lastSeq = 0
	return stamp + spoolExt
}

// List enumerates the spooled files in lexicographic (creation) order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("spool: list %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), spoolExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read deserializes one spooled batch.
func (s *Store) Read(name string) (domain.Batch, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("spool: read %s: %w", name, err)
	}
	return domain.DecodeBatch(data)
}

// Delete removes one file.
func (s *Store) Delete(name string) error {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("spool: delete %s: %w", name, err)
	}
	return nil
}

// HasOfflineData reports whether this store has spooled any batch during
// its lifetime.
func (s *Store) HasOfflineData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOffline
}

var _ ports.Spool = (*Store)(nil)
