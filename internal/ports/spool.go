package ports

import "github.com/hackystat/hackystat-sensor-shell/internal/domain"

// Spool is a durable FIFO of batches on the local filesystem. Files are
// written once and never mutated; readers may delete. A single process owns
// a spool directory.
type Spool interface {
	// Store serializes a non-empty batch to a new file whose name sorts
	// lexicographically in creation order. Empty batches are a no-op.
	Store(batch domain.Batch) error

	// List enumerates the spooled file names in creation order.
	List() ([]string, error)

	// Read deserializes one spooled batch.
	Read(name string) (domain.Batch, error)

	// Delete removes one file.
	Delete(name string) error

	// HasOfflineData reports whether this store has successfully spooled
	// any batch.
	HasOfflineData() bool
}
