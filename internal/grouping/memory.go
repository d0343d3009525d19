package grouping

import (
	"sync"

	"github.com/routecore/router/internal/routing"
)

// InMemoryHandler is a single-process routing.GroupingHandler: every
// proposal and lookup is served from a map guarded by a mutex, with no
// cross-broker coordination. Suitable for a standalone broker or for
// tests of the routing core itself; a clustered deployment should use
// the metadata-store-backed Handler in store.go instead.
type InMemoryHandler struct {
	mu        sync.Mutex
	proposals map[string]string // fullID -> chosen cluster name
}

// NewInMemoryHandler returns an empty handler.
func NewInMemoryHandler() *InMemoryHandler {
	return &InMemoryHandler{proposals: make(map[string]string)}
}

// GetProposal implements routing.GroupingHandler.
func (h *InMemoryHandler) GetProposal(fullID string, useCache bool) (*routing.Response, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clusterName, ok := h.proposals[fullID]
	if !ok {
		return nil, false
	}
	return &routing.Response{
		GroupID:           fullID,
		ClusterName:       clusterName,
		ChosenClusterName: clusterName,
	}, true
}

// Propose implements routing.GroupingHandler. The first caller for a
// given full id always wins; later callers are told about the winner.
func (h *InMemoryHandler) Propose(p routing.Proposal) *routing.Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, ok := h.proposals[p.GroupID]
	if !ok {
		h.proposals[p.GroupID] = p.ClusterName
		return &routing.Response{
			GroupID:           p.GroupID,
			ClusterName:       p.ClusterName,
			ChosenClusterName: p.ClusterName,
		}
	}

	return &routing.Response{
		GroupID:                p.GroupID,
		ClusterName:            existing,
		ChosenClusterName:      existing,
		AlternativeClusterName: existing,
	}
}

// ForceRemove implements routing.GroupingHandler.
func (h *InMemoryHandler) ForceRemove(groupID, clusterName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.proposals[groupID] == clusterName {
		delete(h.proposals, groupID)
	}
}
