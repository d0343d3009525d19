package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/routecore/router/internal/metadata"
	"github.com/routecore/router/internal/metadata/keys"
	"github.com/routecore/router/internal/routing"
)

// ErrInvalidFullID is returned when a full group id is empty.
var ErrInvalidFullID = errors.New("grouping: full id is required")

// proposalRecord is the JSON body stored at a proposal key. clusterID
// scopes the keyspace, not the record - a record only needs to name the
// winning binding's cluster name.
type proposalRecord struct {
	ClusterName string `json:"clusterName"`
}

// Handler implements routing.GroupingHandler on top of a
// metadata.MetadataStore, so a group's winning binding is agreed on
// cluster-wide rather than per-broker. Each full id's decision is a
// single compare-and-swap record: the first Propose to create the key
// wins, and every later Propose for the same full id reads back that
// winner instead of overwriting it.
//
// A small local cache serves the coordinator's cache-preferring
// GetProposal(fullID, true) calls without a store round trip on every
// message. A cached entry is served without reading the store until
// ForceRemove clears it, so a change made to the record by another
// broker in the meantime is not seen through the cache.
type Handler struct {
	meta      metadata.MetadataStore
	clusterID string

	mu    sync.RWMutex
	cache map[string]string // fullID -> cached chosen cluster name
}

// NewHandler returns a Handler whose proposal records live under
// clusterID's namespace in meta.
func NewHandler(meta metadata.MetadataStore, clusterID string) *Handler {
	return &Handler{
		meta:      meta,
		clusterID: clusterID,
		cache:     make(map[string]string),
	}
}

// GetProposal implements routing.GroupingHandler. When useCache is true
// and a cached decision exists, it is returned without touching the
// store; otherwise the store is read directly.
func (h *Handler) GetProposal(fullID string, useCache bool) (*routing.Response, bool) {
	if fullID == "" {
		return nil, false
	}

	if useCache {
		h.mu.RLock()
		clusterName, ok := h.cache[fullID]
		h.mu.RUnlock()
		if ok {
			return responseFor(fullID, clusterName), true
		}
	}

	record, ok, err := h.get(context.Background(), fullID)
	if err != nil || !ok {
		return nil, false
	}

	h.mu.Lock()
	h.cache[fullID] = record.ClusterName
	h.mu.Unlock()

	return responseFor(fullID, record.ClusterName), true
}

// Propose implements routing.GroupingHandler.
func (h *Handler) Propose(p routing.Proposal) *routing.Response {
	if p.GroupID == "" {
		return nil
	}

	ctx := context.Background()
	key := keys.GroupProposalKeyPath(h.clusterID, p.GroupID)

	data, err := json.Marshal(proposalRecord{ClusterName: p.ClusterName})
	if err != nil {
		return nil
	}

	_, err = h.meta.Put(ctx, key, data, metadata.WithExpectedVersion(0))
	if err == nil {
		h.mu.Lock()
		h.cache[p.GroupID] = p.ClusterName
		h.mu.Unlock()
		return responseFor(p.GroupID, p.ClusterName)
	}

	if !errors.Is(err, metadata.ErrVersionMismatch) {
		return nil
	}

	// Someone else created the record first; read back the winner.
	record, ok, getErr := h.get(ctx, p.GroupID)
	if getErr != nil || !ok {
		return nil
	}

	h.mu.Lock()
	h.cache[p.GroupID] = record.ClusterName
	h.mu.Unlock()

	resp := responseFor(p.GroupID, record.ClusterName)
	resp.AlternativeClusterName = record.ClusterName
	return resp
}

// ForceRemove implements routing.GroupingHandler.
func (h *Handler) ForceRemove(groupID, clusterName string) {
	if groupID == "" {
		return
	}

	ctx := context.Background()
	key := keys.GroupProposalKeyPath(h.clusterID, groupID)

	result, err := h.meta.Get(ctx, key)
	if err == nil && result.Exists {
		_ = h.meta.Delete(ctx, key, metadata.WithDeleteExpectedVersion(result.Version))
	}

	h.mu.Lock()
	delete(h.cache, groupID)
	h.mu.Unlock()
}

func (h *Handler) get(ctx context.Context, fullID string) (proposalRecord, bool, error) {
	if fullID == "" {
		return proposalRecord{}, false, ErrInvalidFullID
	}

	key := keys.GroupProposalKeyPath(h.clusterID, fullID)
	result, err := h.meta.Get(ctx, key)
	if err != nil {
		return proposalRecord{}, false, fmt.Errorf("grouping: get proposal %q: %w", fullID, err)
	}
	if !result.Exists {
		return proposalRecord{}, false, nil
	}

	var record proposalRecord
	if err := json.Unmarshal(result.Value, &record); err != nil {
		return proposalRecord{}, false, fmt.Errorf("grouping: unmarshal proposal %q: %w", fullID, err)
	}
	return record, true, nil
}

func responseFor(fullID, clusterName string) *routing.Response {
	return &routing.Response{
		GroupID:           fullID,
		ClusterName:       clusterName,
		ChosenClusterName: clusterName,
	}
}
