package routing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/routecore/router/internal/logging"
)

// Table is the per-address bindings table: it owns the byId,
// byUniqueName, and exclusive-binding registries plus a
// CopyOnWriteRoutingIndex, and implements the dispatch protocol that
// decides which bindings receive a copy of each inbound message.
//
// All methods are safe for concurrent invocation without external
// locking.
type Table struct {
	address string

	mu                sync.RWMutex
	byID              map[int64]Binding
	byUniqueName      map[string]Binding
	exclusiveBindings map[string]Binding

	routingIndex *CopyOnWriteRoutingIndex

	mode    atomic.Int32
	version atomic.Int32

	groupingEnabled atomic.Bool
	coordinator     *groupingCoordinator

	logger *logging.Logger
}

// Option configures a Table at construction time.
type Option func(*Table)

// WithLoadBalancingMode sets the table's initial load-balancing mode.
func WithLoadBalancingMode(mode LoadBalancingMode) Option {
	return func(t *Table) { t.mode.Store(int32(mode)) }
}

// WithGroupingHandler installs a GroupingHandler and enables the
// strict-ordering grouped-routing path. maxGroupRetry <= 0 uses
// MaxGroupRetry.
func WithGroupingHandler(handler GroupingHandler, maxGroupRetry int) Option {
	return func(t *Table) {
		t.coordinator = newGroupingCoordinator(handler, maxGroupRetry, t.logger)
		t.groupingEnabled.Store(handler != nil)
	}
}

// WithLogger attaches a logger used for trace/debug/warn output on the
// add/remove/route paths.
func WithLogger(logger *logging.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// NewTable creates an empty bindings table for address.
func NewTable(address string, opts ...Option) *Table {
	t := &Table{
		address:           address,
		byID:              make(map[int64]Binding),
		byUniqueName:      make(map[string]Binding),
		exclusiveBindings: make(map[string]Binding),
		routingIndex:      NewCopyOnWriteRoutingIndex(),
		logger:            logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.coordinator != nil {
		t.coordinator.logger = t.logger
	}
	return t
}

// Address returns the address this table belongs to.
func (t *Table) Address() string { return t.address }

// Mode returns the table's current load-balancing mode.
func (t *Table) Mode() LoadBalancingMode {
	return LoadBalancingMode(t.mode.Load())
}

// SetLoadBalancingMode updates the table's load-balancing mode.
func (t *Table) SetLoadBalancingMode(mode LoadBalancingMode) {
	t.mode.Store(int32(mode))
}

// AllowRedistribute reports whether the table's current mode permits
// Redistribute to move messages to peer queues.
func (t *Table) AllowRedistribute() bool {
	switch t.Mode() {
	case LoadBalanceOnDemand, LoadBalanceOffWithRedistribution:
		return true
	default:
		return false
	}
}

// Version returns the version this table last produced. Readers may
// observe any past version <= the latest.
func (t *Table) Version() int32 {
	return t.version.Load()
}

func (t *Table) bumpVersion() int32 {
	v := nextVersion()
	t.version.Store(v)
	return v
}

// Add inserts b into the table. If b is exclusive it joins the
// exclusive-binding set, otherwise it joins its routing group in the
// routing index. If b is a remote-queue binding, the table's
// load-balancing mode is overwritten with the mode it advertises -
// local bindings never change the table's mode. Always bumps version.
func (t *Table) Add(b Binding) error {
	t.mu.Lock()
	if _, exists := t.byUniqueName[b.UniqueName()]; exists {
		t.mu.Unlock()
		return fmt.Errorf("routing: add %q: %w", b.UniqueName(), ErrBindingExists)
	}

	t.byID[b.ID()] = b
	t.byUniqueName[b.UniqueName()] = b
	if b.IsExclusive() {
		t.exclusiveBindings[b.UniqueName()] = b
	}
	t.mu.Unlock()

	if !b.IsExclusive() {
		t.routingIndex.AddIfAbsent(b.RoutingName(), b)
	}

	if b.Kind() == KindRemoteQueue {
		if info, ok := b.(RemoteQueueInfo); ok {
			t.SetLoadBalancingMode(info.AdvertisedLoadBalancingMode())
		}
	}

	v := t.bumpVersion()
	t.logger.Debugf("binding added", map[string]any{
		"address": t.address, "bindingId": b.ID(), "uniqueName": b.UniqueName(),
		"routingName": b.RoutingName(), "version": v,
	})
	return nil
}

// RemoveByUniqueName removes and returns the binding registered under
// name, or (nil, false) if absent. Bumps version only on success.
func (t *Table) RemoveByUniqueName(name string) (Binding, bool) {
	t.mu.Lock()
	b, ok := t.byUniqueName[name]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.byUniqueName, name)
	delete(t.byID, b.ID())
	wasExclusive := b.IsExclusive()
	if wasExclusive {
		delete(t.exclusiveBindings, name)
	}
	t.mu.Unlock()

	if !wasExclusive {
		t.routingIndex.Remove(b.RoutingName(), name)
	}

	v := t.bumpVersion()
	t.logger.Debugf("binding removed", map[string]any{
		"address": t.address, "bindingId": b.ID(), "uniqueName": name, "version": v,
	})
	return b, true
}

// OnQueueUpdated records that b's delivery-relevant state changed
// (e.g. consumer count, priority) without any structural change to the
// table. It bumps version, invalidating any RoutingContext that had
// cached a reusable decision.
func (t *Table) OnQueueUpdated(b Binding) {
	v := t.bumpVersion()
	t.logger.Debugf("queue updated", map[string]any{
		"address": t.address, "bindingId": b.ID(), "version": v,
	})
}

// Unproposed fans out to every binding that a grouping proposal for
// groupID has been cleared.
func (t *Table) Unproposed(groupID string) {
	t.mu.RLock()
	bindings := make([]Binding, 0, len(t.byID))
	for _, b := range t.byID {
		bindings = append(bindings, b)
	}
	t.mu.RUnlock()

	for _, b := range bindings {
		b.Unproposed(groupID)
	}
}

func (t *Table) lookupByID(id int64) (Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.byID[id]
	return b, ok
}

func (t *Table) lookupByUniqueName(name string) (Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.byUniqueName[name]
	return b, ok
}

func (t *Table) exclusiveSnapshot() []Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Binding, 0, len(t.exclusiveBindings))
	for _, b := range t.exclusiveBindings {
		out = append(out, b)
	}
	return out
}

// Route dispatches msg through a fixed sub-path sequence:
// reusable-context fast path, scale-down sidechannel, exclusive
// bindings, explicit cluster directive, grouped strict ordering,
// fully-qualified lookup, and finally plain round-robin. rctx
// accumulates the bindings the message was delivered to and the
// reusability decision for the next call.
//
// Route never wraps errors returned by a binding's Route/RouteWithAck;
// they propagate to the caller unchanged.
func (t *Table) Route(ctx context.Context, msg *Message, rctx RoutingContext) error {
	if rctx == nil {
		rctx = NewDefaultRoutingContext()
	}

	version := t.Version()
	if rctx.IsReusable(msg, version) {
		var firstErr error
		for _, target := range rctx.Targets() {
			if err := deliver(ctx, target.Binding, msg, target.Ack, rctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	rctx.Clear()

	t.handleScaleDown(msg)

	if handled, err := t.routeExclusive(ctx, msg, rctx); handled {
		return err
	}

	if handled, err := t.routeExplicitDirective(ctx, msg, rctx); handled {
		return err
	}

	if t.groupingEnabled.Load() && msg.GroupID != "" {
		return t.routeGrouped(ctx, msg, rctx)
	}

	if handled, err := t.routeFQQN(ctx, msg, rctx); handled {
		return err
	}

	return t.routeSimple(ctx, msg, rctx, version)
}

func deliver(ctx context.Context, b Binding, msg *Message, ack bool, rctx RoutingContext) error {
	if ack {
		return b.RouteWithAck(ctx, msg, rctx)
	}
	return b.Route(ctx, msg, rctx)
}

// handleScaleDown translates HDRScaleDownToIDs (remote queue ids) into
// HDRRouteToIDs (local binding ids of the matching remote-queue
// bindings), consuming the scale-down property.
func (t *Table) handleScaleDown(msg *Message) {
	ids, ok := msg.IDsProperty(HDRScaleDownToIDs)
	if !ok {
		return
	}

	t.mu.RLock()
	var translated []int64
	for _, b := range t.byID {
		if b.Kind() != KindRemoteQueue {
			continue
		}
		info, ok := b.(RemoteQueueInfo)
		if !ok {
			continue
		}
		for _, id := range ids {
			if info.RemoteQueueID() == id {
				translated = append(translated, b.ID())
				break
			}
		}
	}
	t.mu.RUnlock()

	if len(translated) > 0 {
		msg.SetIDsProperty(HDRRouteToIDs, translated)
	}
}

// routeExclusive delivers msg to every matching exclusive binding,
// preempting normal routing when at least one exclusive binding's filter
// matches msg. If none matches, it reports not handled.
func (t *Table) routeExclusive(ctx context.Context, msg *Message, rctx RoutingContext) (handled bool, err error) {
	exclusive := t.exclusiveSnapshot()
	if len(exclusive) == 0 {
		return false, nil
	}

	rctx.Clear()
	var firstErr error
	matched := false
	for _, b := range exclusive {
		f := b.Filter()
		if f != nil && !f.Matches(msg) {
			continue
		}
		matched = true
		rctx.AddTarget(b, false)
		if e := b.Route(ctx, msg, rctx); e != nil && firstErr == nil {
			firstErr = e
		}
	}
	if !matched {
		return false, nil
	}
	return true, firstErr
}

// routeExplicitDirective delivers msg to the bindings named by
// HDRRouteToIDs, using the acknowledging variant for ids also listed
// in HDRRouteToAckIDs.
func (t *Table) routeExplicitDirective(ctx context.Context, msg *Message, rctx RoutingContext) (handled bool, err error) {
	ids, hasIDs := msg.IDsProperty(HDRRouteToIDs)
	ackIDs, _ := msg.IDsProperty(HDRRouteToAckIDs)
	if !hasIDs {
		return false, nil
	}

	ackSet := make(map[int64]bool, len(ackIDs))
	for _, id := range ackIDs {
		ackSet[id] = true
	}

	rctx.SetReusable(false, 0)
	var firstErr error
	for _, id := range ids {
		b, ok := t.lookupByID(id)
		if !ok {
			t.logger.Warnf("route directive names unknown binding id, dropping", map[string]any{
				"address": t.address, "bindingId": id,
			})
			continue
		}
		ack := ackSet[id]
		rctx.AddTarget(b, ack)
		if e := deliver(ctx, b, msg, ack, rctx); e != nil && firstErr == nil {
			firstErr = e
		}
	}
	return true, firstErr
}

// routeGrouped runs the group proposal protocol for every routing
// group in turn. A group whose proposal protocol exhausts MaxGroupRetry falls
// back to plain RouteSelector selection for that group only - the
// groups that already found a sticky binding are not revisited, so a
// single message is never delivered twice to the same routing group.
func (t *Table) routeGrouped(ctx context.Context, msg *Message, rctx RoutingContext) error {
	rctx.SetReusable(false, 0)

	selector := RouteSelector{}
	mode := t.Mode()
	var firstErr error

	t.routingIndex.ForEachBindings(func(routingName string, bindings []Binding, cursor *Cursor) {
		if len(bindings) == 0 {
			return
		}

		b, exhausted := t.coordinator.routeGroup(msg, routingName, msg.GroupID, bindings, cursor, mode)
		if exhausted {
			t.logger.Warnf("group routing exhausted, falling back to simple routing for this group", map[string]any{
				"address": t.address, "routingName": routingName, "groupId": msg.GroupID,
			})
			b, _ = selector.Select(msg, bindings, cursor, mode)
		}
		if b == nil {
			return
		}
		rctx.AddTarget(b, false)
		if e := b.Route(ctx, msg, rctx); e != nil && firstErr == nil {
			firstErr = e
		}
	})

	return firstErr
}

// routeFQQN delivers msg to the binding named by a fully-qualified
// queue name address, if one exists.
func (t *Table) routeFQQN(ctx context.Context, msg *Message, rctx RoutingContext) (handled bool, err error) {
	_, queue, ok := SplitFQQN(msg.Address)
	if !ok {
		return false, nil
	}

	rctx.SetReusable(false, 0)
	b, found := t.lookupByUniqueName(queue)
	if !found {
		// Silently dropped: no exclusive or grouped fallback for an
		// FQQN target that doesn't exist. Preserved as-is.
		return true, nil
	}
	rctx.AddTarget(b, false)
	return true, b.Route(ctx, msg, rctx)
}

// routeSimple round-robins msg across every routing group.
func (t *Table) routeSimple(ctx context.Context, msg *Message, rctx RoutingContext, version int32) error {
	selector := RouteSelector{}
	mode := t.Mode()

	var firstErr error
	groupCount := 0
	var soleBinding Binding

	t.routingIndex.ForEachBindings(func(routingName string, bindings []Binding, cursor *Cursor) {
		groupCount++
		if len(bindings) == 1 {
			soleBinding = bindings[0]
		} else {
			soleBinding = nil
		}

		b, ok := selector.Select(msg, bindings, cursor, mode)
		if !ok {
			return
		}
		rctx.AddTarget(b, false)
		if e := b.Route(ctx, msg, rctx); e != nil && firstErr == nil {
			firstErr = e
		}
	})

	reusable := groupCount == 1 && soleBinding != nil && soleBinding.Filter() == nil && soleBinding.IsLocal()
	if reusable {
		rctx.SetReusable(true, version)
	} else {
		rctx.SetReusable(false, 0)
	}
	return firstErr
}

// Redistribute is called by a queue that failed to deliver msg locally
// and wants to offload it to a peer in its own routing group. Returns
// false if the table's mode disallows redistribution, the origin
// queue's routing group doesn't exist, or no eligible peer is found.
func (t *Table) Redistribute(ctx context.Context, msg *Message, originQueue Binding, rctx RoutingContext) bool {
	if !t.AllowRedistribute() {
		return false
	}

	bindings, cursor, ok := t.routingIndex.GetBindings(originQueue.RoutingName())
	if !ok {
		return false
	}

	n := len(bindings)
	if n == 0 {
		return false
	}

	start := cursor.Position(n)
	pos := start
	for i := 0; i < n; i++ {
		b := bindings[pos]
		next := (pos + 1) % n
		if b.UniqueName() != originQueue.UniqueName() {
			f := b.Filter()
			if (f == nil || f.Matches(msg)) && b.IsHighAcceptPriority(msg) {
				cursor.Advance(pos, n)
				if rctx != nil {
					rctx.AddTarget(b, false)
				}
				return b.Route(ctx, msg, rctx) == nil
			}
		}
		pos = next
	}
	return false
}

// DebugBindings renders a human-readable dump of the table's three
// registries: the routing-name index with each group's cursor
// position, the id map, and the exclusive-binding set. Intended for a
// management/debug endpoint and for tests.
func (t *Table) DebugBindings() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bindings for address %q (mode=%s, version=%d)\n", t.address, t.Mode(), t.Version())

	sb.WriteString("Routing index:\n")
	t.routingIndex.ForEachBindings(func(routingName string, bindings []Binding, cursor *Cursor) {
		fmt.Fprintf(&sb, "  %s (cursor=%d):\n", routingName, cursor.Position(max(len(bindings), 1)))
		for _, b := range bindings {
			fmt.Fprintf(&sb, "    id=%d uniqueName=%s clusterName=%s local=%v connected=%v\n",
				b.ID(), b.UniqueName(), b.ClusterName(), b.IsLocal(), b.IsConnected())
		}
	})

	t.mu.RLock()
	defer t.mu.RUnlock()

	sb.WriteString("By id:\n")
	for id, b := range t.byID {
		fmt.Fprintf(&sb, "  %d -> %s\n", id, b.UniqueName())
	}

	sb.WriteString("Exclusive bindings:\n")
	for name := range t.exclusiveBindings {
		fmt.Fprintf(&sb, "  %s\n", name)
	}

	return sb.String()
}
