package routing

import (
	"math"
	"sync/atomic"
)

// globalVersion is a process-wide monotonic counter shared by every
// BindingsTable. A single shared source means a RoutingContext handed
// from one table to another can never collide on a version number it
// has already seen from the first table.
//
// Seeded at math.MinInt32 to leave the widest possible range before
// wraparound. Overflow wraps and is tolerated - version is only ever
// compared for equality, never ordered.
var globalVersion atomic.Int32

func init() {
	globalVersion.Store(math.MinInt32)
}

// nextVersion returns a value never previously returned by this process
// (modulo int32 wraparound, which is an accepted, intentional tradeoff).
func nextVersion() int32 {
	return globalVersion.Add(1)
}
