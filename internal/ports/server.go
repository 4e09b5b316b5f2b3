package ports

import (
	"context"

	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
)

// IngestClient is the stateless wrapper around the ingestion server's three
// HTTP operations.
type IngestClient interface {
	// Ping reports whether the host answers at all. Unauthenticated.
	Ping(ctx context.Context) bool

	// IsRegistered reports whether the configured credentials resolve to a
	// registered user at the host.
	IsRegistered(ctx context.Context) bool

	// PutBatch transmits the batch as one XML document. A nil return means
	// the server acknowledged every record in the batch.
	PutBatch(ctx context.Context, batch domain.Batch) error

	// Host returns the normalized base URL the client talks to.
	Host() string
}

// Reachability is a liveness check with a hard wall-clock bound: it returns
// false if no result is available in time, even if the underlying probe is
// still running.
type Reachability interface {
	IsPingable() bool
}
