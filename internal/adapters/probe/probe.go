// Package probe provides the bounded-latency reachability check used to
// decide between transmitting and spooling.
package probe

import (
	"context"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// DefaultTimeout is the wall-clock bound on a probe when the caller does
// not supply one.
const DefaultTimeout = 5 * time.Second

// Probe wraps the credential check under a supervisory timer. The HTTP
// stack's own connect/read timeouts are not uniformly honored across
// platforms, so the timer guarantees caller-visible latency regardless.
type Probe struct {
	client  ports.IngestClient
	timeout time.Duration
}

// New builds a probe over the given client. A non-positive timeout falls
// back to DefaultTimeout.
func New(client ports.IngestClient, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Probe{client: client, timeout: timeout}
}

// IsPingable reports whether the host answered the credential check within
// the probe's bound.
func (p *Probe) IsPingable() bool {
	return p.IsPingableWithin(p.timeout)
}

// IsPingableWithin runs the check with an explicit bound. If no result is
// available in time, false is returned and the straggling check is
// abandoned; the buffered channel lets its goroutine finish and be
// collected whenever the HTTP stack gives up.
func (p *Probe) IsPingableWithin(timeout time.Duration) bool {
	result := make(chan bool, 1)
	go func() {
		result <- p.client.IsRegistered(context.Background())
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ok := <-result:
		return ok
	case <-timer.C:
		return false
	}
}

var _ ports.Reachability = (*Probe)(nil)
