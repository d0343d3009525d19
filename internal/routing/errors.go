package routing

import "errors"

// Sentinel errors returned by this package. They describe conditions the
// caller may want to branch on with errors.Is; most routing-path error
// conditions are handled internally (logged and recovered) rather than
// surfaced, per the error taxonomy this package follows.
var (
	// ErrUnknownBindingID names the condition of an HDR_ROUTE_TO_IDS /
	// HDR_ROUTE_TO_ACK_IDS entry that names a binding id not present in
	// the table. No function in this package returns it: Table.Route
	// logs and drops the offending id.
	ErrUnknownBindingID = errors.New("routing: unknown binding id")

	// ErrGroupRoutingExhausted names the condition of MAX_GROUP_RETRY
	// attempts running out without finding a binding for a message
	// group. No function in this package returns it: the grouping path
	// reports exhaustion as a boolean and Table.Route falls back to
	// ungrouped simple routing.
	ErrGroupRoutingExhausted = errors.New("routing: group routing exhausted retries")

	// ErrNoSuchRoutingGroup names the condition of a routing name with
	// no entry in the routing index, including a group removed by a
	// racing writer. No function in this package returns it:
	// CopyOnWriteRoutingIndex.GetBindings reports it as ok=false.
	ErrNoSuchRoutingGroup = errors.New("routing: no such routing group")

	// ErrBindingExists is returned by Table.Add when a binding with the
	// same unique name is already registered.
	ErrBindingExists = errors.New("routing: binding already exists")
)
