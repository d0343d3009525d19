package routing

import "testing"

// fakeGroupingHandler is an in-memory GroupingHandler stub for exercising
// the group proposal protocol without any real consensus machinery.
type fakeGroupingHandler struct {
	proposals map[string]*Response
	// declineTo, if it has an entry for a full id, answers every Propose
	// for that full id with a decline in favor of the mapped cluster name.
	declineTo map[string]string
	// timeoutOnce forces the next Propose call for this full id to
	// return nil (simulating a network timeout).
	timeoutOnce map[string]bool
}

func newFakeGroupingHandler() *fakeGroupingHandler {
	return &fakeGroupingHandler{
		proposals:   make(map[string]*Response),
		declineTo:   make(map[string]string),
		timeoutOnce: make(map[string]bool),
	}
}

func (h *fakeGroupingHandler) GetProposal(fullID string, useCache bool) (*Response, bool) {
	r, ok := h.proposals[fullID]
	return r, ok
}

func (h *fakeGroupingHandler) Propose(p Proposal) *Response {
	if h.timeoutOnce[p.GroupID] {
		h.timeoutOnce[p.GroupID] = false
		return nil
	}

	chosen := p.ClusterName
	var alt string
	if decline, ok := h.declineTo[p.GroupID]; ok {
		chosen = decline
		alt = decline
	}

	resp := &Response{
		GroupID:                p.GroupID,
		ClusterName:             p.ClusterName,
		ChosenClusterName:       chosen,
		AlternativeClusterName:  alt,
	}
	h.proposals[p.GroupID] = resp
	return resp
}

func (h *fakeGroupingHandler) ForceRemove(groupID, clusterName string) {
	delete(h.proposals, groupID)
}

func TestGroupingCoordinatorAcceptsProposal(t *testing.T) {
	handler := newFakeGroupingHandler()
	gc := newGroupingCoordinator(handler, 5, nil)

	b1 := newFakeBinding(1, "q1", "orders")
	b2 := newFakeBinding(2, "q2", "orders")
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", b1)
	idx.AddIfAbsent("orders", b2)
	bindings, cursor, _ := idx.GetBindings("orders")

	binding, exhausted := gc.routeGroup(NewMessage("orders"), "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)
	if exhausted {
		t.Fatal("expected proposal to be accepted, not exhausted")
	}
	if binding == nil {
		t.Fatal("expected a binding to be chosen")
	}
}

func TestGroupingCoordinatorUsesCachedProposal(t *testing.T) {
	handler := newFakeGroupingHandler()
	gc := newGroupingCoordinator(handler, 5, nil)

	b1 := newFakeBinding(1, "q1", "orders")
	b2 := newFakeBinding(2, "q2", "orders")
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", b1)
	idx.AddIfAbsent("orders", b2)
	bindings, cursor, _ := idx.GetBindings("orders")
	msg := NewMessage("orders")

	first, _ := gc.routeGroup(msg, "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)
	second, _ := gc.routeGroup(msg, "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)

	if first.UniqueName() != second.UniqueName() {
		t.Fatalf("stickiness violated: first=%s second=%s", first.UniqueName(), second.UniqueName())
	}
}

func TestGroupingCoordinatorDeclineFallsBackToAlternative(t *testing.T) {
	handler := newFakeGroupingHandler()
	handler.declineTo["group-1.orders"] = "q2"
	gc := newGroupingCoordinator(handler, 5, nil)

	b1 := newFakeBinding(1, "q1", "orders")
	b2 := newFakeBinding(2, "q2", "orders")
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", b1)
	idx.AddIfAbsent("orders", b2)
	bindings, cursor, _ := idx.GetBindings("orders")

	binding, exhausted := gc.routeGroup(NewMessage("orders"), "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)
	if exhausted {
		t.Fatal("expected decline to resolve to an alternative, not exhaust")
	}
	if binding == nil || binding.UniqueName() != "q2" {
		t.Fatalf("binding = %v, want q2", binding)
	}
}

func TestGroupingCoordinatorRetriesOnTimeout(t *testing.T) {
	handler := newFakeGroupingHandler()
	handler.timeoutOnce["group-1.orders"] = true
	gc := newGroupingCoordinator(handler, 5, nil)

	b1 := newFakeBinding(1, "q1", "orders")
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", b1)
	bindings, cursor, _ := idx.GetBindings("orders")

	binding, exhausted := gc.routeGroup(NewMessage("orders"), "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)
	if exhausted {
		t.Fatal("expected the retry after a timeout to succeed")
	}
	if binding == nil {
		t.Fatal("expected a binding to be chosen after retrying past the timeout")
	}
}

func TestGroupingCoordinatorExhaustsRetries(t *testing.T) {
	handler := newFakeGroupingHandler()
	gc := newGroupingCoordinator(handler, 3, nil)

	// One binding, but every proposal is declined toward a cluster name
	// no binding has, so every attempt loops through ForceRemove until
	// retries run out.
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", newFakeBinding(1, "q1", "orders"))
	bindings, cursor, _ := idx.GetBindings("orders")

	// Force every proposal to be declined in favor of a cluster name
	// that doesn't resolve to any binding in this group, so the loop
	// can never terminate early via the cache-hit or accept paths.
	handler.declineTo["group-1.orders"] = "nonexistent"

	_, exhausted := gc.routeGroup(NewMessage("orders"), "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)
	if !exhausted {
		t.Fatal("expected retries to be exhausted")
	}
}

func TestGroupingCoordinatorNoCandidateReturnsFalse(t *testing.T) {
	handler := newFakeGroupingHandler()
	gc := newGroupingCoordinator(handler, 3, nil)

	noMatch := newFakeBinding(1, "q1", "orders")
	noMatch.filter = FilterFunc(func(msg *Message) bool { return false })
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", noMatch)
	bindings, cursor, _ := idx.GetBindings("orders")

	binding, exhausted := gc.routeGroup(NewMessage("orders"), "orders", "group-1", bindings, cursor, LoadBalanceOnDemand)
	if binding != nil || exhausted {
		t.Fatalf("binding=%v exhausted=%v, want nil, false", binding, exhausted)
	}
}

func TestNewGroupingCoordinatorDefaultsRetry(t *testing.T) {
	gc := newGroupingCoordinator(newFakeGroupingHandler(), 0, nil)
	if gc.maxGroupRetry != MaxGroupRetry {
		t.Fatalf("maxGroupRetry = %d, want %d", gc.maxGroupRetry, MaxGroupRetry)
	}
}
