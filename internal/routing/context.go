package routing

import "sync"

// RoutedTarget records a single binding a message was (or would be)
// delivered to, and whether that delivery used the acknowledging
// variant of Binding.Route.
type RoutedTarget struct {
	Binding Binding
	Ack     bool
}

// RoutingContext accumulates the targets a message is routed to and
// supports the table's reusable-decision optimization: a context that
// remembers the table version it was populated at can be replayed for a
// new message without re-running selection, as long as the table's
// version hasn't advanced since.
//
// Implementations must be safe for concurrent use only to the extent
// that a single invocation of Table.Route owns its context exclusively;
// RoutingContext itself is not meant to be shared across concurrent
// routes.
type RoutingContext interface {
	// Clear discards any accumulated targets and resets reusability.
	Clear()

	// AddTarget records that msg was (or will be) routed to b.
	AddTarget(b Binding, ack bool)

	// Targets returns the targets accumulated since the last Clear.
	Targets() []RoutedTarget

	// SetReusable marks whether the current targets may be replayed
	// for a later message without re-selection, and at which table
	// version that decision was made. Once SetReusable(false, ...) has
	// been called since the last Clear, later
	// SetReusable(true, ...) calls must have no effect: once any
	// sub-path in the dispatch sequence has decided a message is not
	// cacheable, nothing downstream may override that.
	SetReusable(reusable bool, version int32)

	// IsReusable reports whether the context's current targets can be
	// replayed for msg without re-selection, i.e. whether a prior call
	// marked the context reusable at exactly version.
	IsReusable(msg *Message, version int32) bool
}

// DefaultRoutingContext is the routing core's own RoutingContext
// implementation. Callers are free to supply their own as long as it
// satisfies the interface; this one is what Table.Route constructs
// when the caller doesn't carry one across calls.
type DefaultRoutingContext struct {
	mu       sync.Mutex
	targets  []RoutedTarget
	reusable bool
	// reusableLocked is set once SetReusable(false, ...) has been
	// called since the last Clear, so later SetReusable(true, ...)
	// calls within the same invocation are ignored. Clear resets it.
	reusableLocked bool
	version        int32
	hasVersion     bool
}

// NewDefaultRoutingContext returns an empty, non-reusable context.
func NewDefaultRoutingContext() *DefaultRoutingContext {
	return &DefaultRoutingContext{}
}

// Clear implements RoutingContext. It resets the target list and the
// reusability decision, scoping both to the invocation that is about
// to (re)populate them rather than letting a single SetReusable(false,
// ...) call lock the context out of reuse for its entire lifetime.
func (c *DefaultRoutingContext) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets = nil
	c.reusable = false
	c.reusableLocked = false
	c.hasVersion = false
}

// AddTarget implements RoutingContext.
func (c *DefaultRoutingContext) AddTarget(b Binding, ack bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets = append(c.targets, RoutedTarget{Binding: b, Ack: ack})
}

// Targets implements RoutingContext.
func (c *DefaultRoutingContext) Targets() []RoutedTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RoutedTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// SetReusable implements RoutingContext.
func (c *DefaultRoutingContext) SetReusable(reusable bool, version int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reusableLocked {
		return
	}
	if !reusable {
		c.reusableLocked = true
		c.reusable = false
		return
	}
	c.reusable = true
	c.version = version
	c.hasVersion = true
}

// IsReusable implements RoutingContext. msg is accepted for interface
// symmetry with implementations that re-check a message's own cached
// binding list; this implementation only compares table versions,
// since the routing decision is stored on the context, not on the
// message.
func (c *DefaultRoutingContext) IsReusable(msg *Message, version int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reusable && c.hasVersion && c.version == version && len(c.targets) > 0
}
