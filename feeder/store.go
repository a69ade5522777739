package feeder

import (
	"context"

	"github.com/bizopsbank/feeder/internal"
)

var logger = internal.GetLogger("feeder")

// SemaphoreStore is the shared, cluster-replicated map the claim protocol
// runs against: bounded key -> 8-byte signature. It is the only resource
// shared across nodes, and it must only ever be mutated through
// InsertIfAbsent (plus the collision-path Put); a read-then-write would
// reintroduce exactly the race this design exists to prevent.
//
// All methods may block on network I/O and honor ctx cancellation. Any
// failure of the underlying store wraps internal.ErrStoreUnavailable and is
// never interpreted as "not claimed".
type SemaphoreStore interface {
	// InsertIfAbsent atomically stores sig under key if and only if no entry
	// exists, and returns the previous value: nil when this caller won the
	// key, otherwise the value the winner stored. When two nodes race on the
	// same key, exactly one observes nil.
	InsertIfAbsent(ctx context.Context, key uint16, sig []byte) ([]byte, error)

	// Get returns the current value for key, or nil when absent.
	Get(ctx context.Context, key uint16) ([]byte, error)

	// Put unconditionally overwrites the entry for key. Used only to resolve
	// bounded-key collisions.
	Put(ctx context.Context, key uint16, sig []byte) error

	// Close releases the connection to the shared store.
	Close() error
}
