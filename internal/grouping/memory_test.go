package grouping

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routecore/router/internal/routing"
)

func TestInMemoryHandlerGetProposalEmpty(t *testing.T) {
	h := NewInMemoryHandler()

	_, ok := h.GetProposal("group-1", true)
	require.False(t, ok, "expected no proposal on an empty handler")
}

func TestInMemoryHandlerFirstProposalWins(t *testing.T) {
	h := NewInMemoryHandler()

	resp := h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c1"})
	require.NotNil(t, resp)
	require.Equal(t, "c1", resp.ChosenClusterName)
	require.Empty(t, resp.AlternativeClusterName, "acceptance must not set AlternativeClusterName")

	cached, ok := h.GetProposal("group-1", true)
	require.True(t, ok, "expected a cached proposal after acceptance")
	require.Equal(t, "c1", cached.ChosenClusterName)
}

func TestInMemoryHandlerSecondProposalDeclines(t *testing.T) {
	h := NewInMemoryHandler()

	h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c1"})
	resp := h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c2"})
	require.NotNil(t, resp)
	require.Equal(t, "c1", resp.ChosenClusterName, "the first winner must stick")
	require.Equal(t, "c1", resp.AlternativeClusterName)
}

func TestInMemoryHandlerForceRemoveRequiresMatchingCluster(t *testing.T) {
	h := NewInMemoryHandler()
	h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c1"})

	h.ForceRemove("group-1", "c2")
	_, ok := h.GetProposal("group-1", true)
	require.True(t, ok, "a mismatched cluster name must not clear the proposal")

	h.ForceRemove("group-1", "c1")
	_, ok = h.GetProposal("group-1", true)
	require.False(t, ok, "a matching cluster name must clear the proposal")
}

func TestInMemoryHandlerReproposeAfterForceRemove(t *testing.T) {
	h := NewInMemoryHandler()
	h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c1"})
	h.ForceRemove("group-1", "c1")

	resp := h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c2"})
	require.Equal(t, "c2", resp.ChosenClusterName, "the freed slot must accept a new winner")
}

func TestInMemoryHandlerIndependentGroups(t *testing.T) {
	h := NewInMemoryHandler()

	h.Propose(routing.Proposal{GroupID: "group-1", ClusterName: "c1"})
	resp := h.Propose(routing.Proposal{GroupID: "group-2", ClusterName: "c2"})
	require.Equal(t, "c2", resp.ChosenClusterName, "group-2's decision must be independent of group-1's")
}
