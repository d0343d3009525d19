package routing

import (
	"github.com/routecore/router/internal/logging"
)

// groupingCoordinator implements the strict-ordering sticky-routing
// protocol: for a message carrying a group id, guarantee that every
// message sharing that group id and routing name ends up at the same
// binding, cluster-wide, for the life of the proposal. It is a thin
// adapter over the external GroupingHandler - all the actual consensus
// lives upstream; this type only implements the retry and fallback
// shape described by the proposal protocol.
type groupingCoordinator struct {
	handler       GroupingHandler
	maxGroupRetry int
	logger        *logging.Logger
}

func newGroupingCoordinator(handler GroupingHandler, maxGroupRetry int, logger *logging.Logger) *groupingCoordinator {
	if maxGroupRetry <= 0 {
		maxGroupRetry = MaxGroupRetry
	}
	return &groupingCoordinator{handler: handler, maxGroupRetry: maxGroupRetry, logger: logger}
}

// routeGroup runs the group proposal protocol for a single routing
// group. It returns (binding, true) if a binding was found and
// delivery should be attempted, or (nil, false) if the group should be
// skipped entirely (no candidate exists at all - distinct from retry
// exhaustion, which is signalled by exhausted=true).
func (gc *groupingCoordinator) routeGroup(msg *Message, routingName string, groupID string, bindings []Binding, cursor *Cursor, mode LoadBalancingMode) (binding Binding, exhausted bool) {
	selector := RouteSelector{}
	fullID := groupID + "." + routingName

	for tries := 0; tries < gc.maxGroupRetry; tries++ {
		var resp *Response
		var candidate Binding

		if cached, ok := gc.handler.GetProposal(fullID, true); ok {
			resp = cached
			candidate = findByClusterName(bindings, cached.ChosenClusterName)
			if candidate != nil {
				return candidate, false
			}
			// Cache hit named a binding that's no longer in this
			// group; fall through to 4b below.
		} else {
			c, ok := selector.Select(msg, bindings, cursor, mode)
			if !ok {
				return nil, false
			}
			resp = gc.handler.Propose(Proposal{GroupID: fullID, ClusterName: c.ClusterName()})
			if resp == nil {
				if gc.logger != nil {
					gc.logger.Debugf("grouping proposal timed out, retrying", map[string]any{
						"fullId": fullID, "try": tries,
					})
				}
				continue
			}
			if resp.ChosenClusterName == c.ClusterName() {
				return c, false
			}
			candidate = findByClusterName(bindings, resp.AlternativeClusterName)
			if candidate != nil {
				return candidate, false
			}
		}

		// 4b: routing failed for this attempt.
		if resp != nil {
			gc.handler.ForceRemove(resp.GroupID, resp.ClusterName)
		}
	}

	if gc.logger != nil {
		gc.logger.Warnf("group routing exhausted retries, falling back to simple routing", map[string]any{
			"fullId": fullID, "maxRetry": gc.maxGroupRetry,
		})
	}
	return nil, true
}

func findByClusterName(bindings []Binding, clusterName string) Binding {
	if clusterName == "" {
		return nil
	}
	for _, b := range bindings {
		if b.ClusterName() == clusterName {
			return b
		}
	}
	return nil
}
