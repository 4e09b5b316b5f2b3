package ports

import (
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
)

// Shell is the transmission surface shared by the single shell, the
// multi-shell, and the façade, so sensors can toggle between them at
// run-time without code changes.
type Shell interface {
	// Add validates the record and appends it to the shell's buffer. A full
	// buffer triggers a synchronous flush before Add returns.
	Add(rec domain.Record) error

	// AddKeyValues builds a Record from the map (reserved keys become
	// fields, the rest properties) and delegates to Add.
	AddKeyValues(keyVals map[string]string) error

	// StateChange adds the record iff (resource, checksum) differs from the
	// previous call; the memo is updated either way.
	StateChange(checksum int64, keyVals map[string]string) error

	// Send flushes the buffer synchronously and returns the number of
	// records the server acknowledged in this call.
	Send() (int, error)

	// Ping reports whether the host is reachable and the credentials valid,
	// within a bounded wait.
	Ping() bool

	// Quit stops the autoflush timer, performs a final flush, and releases
	// log handles. A final-flush failure is returned after teardown
	// completes.
	Quit() error

	// HasOfflineData reports whether any batch was spooled to disk during
	// this shell's lifetime.
	HasOfflineData() bool

	// TotalSent is the number of records acknowledged by the server across
	// the shell's lifetime.
	TotalSent() int64

	// StartTime is when the shell was constructed.
	StartTime() time.Time
}
