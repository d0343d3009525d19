package routing

import "context"

// LoadBalancingMode controls how a routing group distributes messages
// across its member bindings.
type LoadBalancingMode int

const (
	// LoadBalanceOff disallows routing to remote-queue bindings
	// entirely; only local bindings and diverts are eligible.
	LoadBalanceOff LoadBalancingMode = iota
	// LoadBalanceStrict accepts any connected filter-matching binding,
	// whether or not it is high-accept-priority. If no matching binding
	// is connected, it falls back to the first matching one.
	LoadBalanceStrict
	// LoadBalanceOnDemand prefers a connected, high-priority binding
	// but falls back to a matching low-priority one, preferring local
	// bindings among fallbacks.
	LoadBalanceOnDemand
	// LoadBalanceOffWithRedistribution matches bindings the same as any
	// non-Off mode, but additionally allows Table.Redistribute to move
	// messages to peers.
	LoadBalanceOffWithRedistribution
)

func (m LoadBalancingMode) String() string {
	switch m {
	case LoadBalanceOff:
		return "OFF"
	case LoadBalanceStrict:
		return "STRICT"
	case LoadBalanceOnDemand:
		return "ON_DEMAND"
	case LoadBalanceOffWithRedistribution:
		return "OFF_WITH_REDISTRIBUTION"
	default:
		return "UNKNOWN"
	}
}

// ParseLoadBalancingMode converts a config/CLI string to a
// LoadBalancingMode. Unrecognized values fall back to LoadBalanceOff,
// the safest default.
func ParseLoadBalancingMode(s string) LoadBalancingMode {
	switch s {
	case "off":
		return LoadBalanceOff
	case "strict":
		return LoadBalanceStrict
	case "onDemand":
		return LoadBalanceOnDemand
	case "offWithRedistribution":
		return LoadBalanceOffWithRedistribution
	default:
		return LoadBalanceOff
	}
}

// Filter evaluates whether a message matches a binding's selector.
// A nil Filter always matches.
type Filter interface {
	Matches(msg *Message) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(msg *Message) bool

// Matches calls f.
func (f FilterFunc) Matches(msg *Message) bool { return f(msg) }

// Kind tags the concrete variant of a Binding. The routing core only
// ever branches on IsLocal/IsRemote and on the remote-queue variant
// specifically (to read its advertised load-balancing mode); Kind is
// the discriminant that makes that branch exhaustive without a type
// switch on concrete structs.
type Kind int

const (
	// KindLocalQueue is a queue owned by this broker.
	KindLocalQueue Kind = iota
	// KindRemoteQueue is a queue owned by a cluster peer, reached
	// through a bridge. Remote-queue bindings advertise a
	// load-balancing mode that overwrites the table's own on add.
	KindRemoteQueue
	// KindDivert is a non-queue binding that forwards a copy of the
	// message to another address.
	KindDivert
)

// Binding is the contract the routing core consumes. Bindings are
// supplied by the post office; the core never constructs one itself.
// Implementations must be safe for concurrent use - Route/RouteWithAck
// may be invoked from many I/O threads simultaneously.
type Binding interface {
	// ID is a 64-bit identifier, unique within the owning table for
	// the binding's lifetime.
	ID() int64

	// UniqueName is an opaque string, globally unique among the
	// bindings of this table.
	UniqueName() string

	// RoutingName groups bindings that load-balance against each
	// other. Multiple bindings may share a routing name.
	RoutingName() string

	// ClusterName is a stable cross-cluster identifier, consulted only
	// by the grouping protocol.
	ClusterName() string

	// Filter returns the binding's selector, or nil to match every
	// message.
	Filter() Filter

	// IsExclusive reports whether this binding receives a copy of
	// every matching message, preempting normal routing.
	IsExclusive() bool

	// IsLocal reports whether the binding is served by this broker.
	IsLocal() bool

	// IsConnected reports whether the binding currently has a live
	// consumer attached.
	IsConnected() bool

	// IsHighAcceptPriority reports whether the binding currently has a
	// consumer that would accept msg without delay (e.g. credit
	// available, no backlog). Used by RouteSelector and Redistribute.
	IsHighAcceptPriority(msg *Message) bool

	// Kind returns the binding's variant tag.
	Kind() Kind

	// Route delivers msg to this binding.
	Route(ctx context.Context, msg *Message, rctx RoutingContext) error

	// RouteWithAck delivers msg to this binding using the
	// acknowledging variant, used for bindings named in
	// HDRRouteToAckIDs.
	RouteWithAck(ctx context.Context, msg *Message, rctx RoutingContext) error

	// Unproposed notifies the binding that a grouping proposal for
	// groupID has been cleared (forced removal or explicit unpropose).
	Unproposed(groupID string)
}

// RemoteQueueInfo is implemented by bindings of Kind() == KindRemoteQueue,
// surfacing the cluster-advertised data the table needs when deciding
// whether a binding overwrites the table's load-balancing mode and when
// translating HDRScaleDownToIDs.
type RemoteQueueInfo interface {
	// RemoteQueueID is the id of the queue as known on the remote
	// broker, used to resolve HDRScaleDownToIDs entries to this local
	// binding.
	RemoteQueueID() int64

	// AdvertisedLoadBalancingMode is the mode this remote peer wants
	// the owning table to adopt.
	AdvertisedLoadBalancingMode() LoadBalancingMode
}
