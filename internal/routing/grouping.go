package routing

// MaxGroupRetry bounds the number of times grouped routing will retry
// after a proposal is declined, times out, or names a binding that has
// since disappeared, before falling back to ungrouped simple routing
// for that one message.
const MaxGroupRetry = 10

// Proposal is offered to a GroupingHandler when no cached decision
// exists yet for a group id: "I would like clusterName to serve groupID
// from now on."
type Proposal struct {
	GroupID     string
	ClusterName string
}

// Response is the GroupingHandler's answer to a proposal or cache
// lookup. ChosenClusterName is the binding that will actually serve the
// group; if it differs from the cluster name that was proposed, the
// caller should treat the proposal as declined in favor of
// AlternativeClusterName (which equals ChosenClusterName in that case).
type Response struct {
	GroupID           string
	ClusterName       string
	ChosenClusterName string
	// AlternativeClusterName is set when the handler declined the
	// proposed cluster name in favor of one already bound to this
	// group id.
	AlternativeClusterName string
}

// GroupingHandler is the external collaborator that decides which
// binding serves a given message-group id, consensus-style, across the
// cluster. The routing core treats every call as potentially
// synchronous network I/O; propose's timeout is expected to manifest as
// a nil Response, never an error or panic.
type GroupingHandler interface {
	// GetProposal looks up the current decision for fullID. useCache
	// indicates the handler may serve a locally-cached answer instead
	// of forcing a network round trip on the hot path. A nil Response
	// with ok=false means no decision exists yet.
	GetProposal(fullID string, useCache bool) (*Response, bool)

	// Propose offers a candidate binding for a group id that has no
	// decision yet. A nil Response return means the call timed out;
	// the caller retries. A non-nil Response whose ChosenClusterName
	// equals the proposal's ClusterName means the proposal was
	// accepted; otherwise it was declined in favor of
	// ChosenClusterName/AlternativeClusterName.
	Propose(p Proposal) *Response

	// ForceRemove tells the handler that the binding previously chosen
	// for groupID (clusterName) is gone and the group id should be
	// reproposed on the next call.
	ForceRemove(groupID, clusterName string)
}
