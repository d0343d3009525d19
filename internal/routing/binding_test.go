package routing

import (
	"context"
	"sync/atomic"
)

// fakeBinding is a minimal, concurrency-safe Binding used across this
// package's tests. Route/RouteWithAck record their calls instead of
// doing any real delivery.
type fakeBinding struct {
	id          int64
	uniqueName  string
	routingName string
	clusterName string
	filter      Filter
	exclusive   bool
	local       bool
	connected   bool
	highAccept  bool
	kind        Kind

	routed       atomic.Int64
	routedAck    atomic.Int64
	unproposedID atomic.Value // string

	// remote-queue fields, only meaningful when kind == KindRemoteQueue
	remoteQueueID int64
	advertised    LoadBalancingMode

	routeErr error
}

func newFakeBinding(id int64, uniqueName, routingName string) *fakeBinding {
	return &fakeBinding{
		id:          id,
		uniqueName:  uniqueName,
		routingName: routingName,
		clusterName: uniqueName,
		local:       true,
		connected:   true,
		highAccept:  true,
		kind:        KindLocalQueue,
	}
}

func (f *fakeBinding) ID() int64             { return f.id }
func (f *fakeBinding) UniqueName() string    { return f.uniqueName }
func (f *fakeBinding) RoutingName() string   { return f.routingName }
func (f *fakeBinding) ClusterName() string   { return f.clusterName }
func (f *fakeBinding) Filter() Filter        { return f.filter }
func (f *fakeBinding) IsExclusive() bool     { return f.exclusive }
func (f *fakeBinding) IsLocal() bool         { return f.local }
func (f *fakeBinding) IsConnected() bool     { return f.connected }
func (f *fakeBinding) Kind() Kind            { return f.kind }

func (f *fakeBinding) IsHighAcceptPriority(msg *Message) bool { return f.highAccept }

func (f *fakeBinding) Route(ctx context.Context, msg *Message, rctx RoutingContext) error {
	f.routed.Add(1)
	return f.routeErr
}

func (f *fakeBinding) RouteWithAck(ctx context.Context, msg *Message, rctx RoutingContext) error {
	f.routedAck.Add(1)
	return f.routeErr
}

func (f *fakeBinding) Unproposed(groupID string) {
	f.unproposedID.Store(groupID)
}

func (f *fakeBinding) RemoteQueueID() int64 { return f.remoteQueueID }

func (f *fakeBinding) AdvertisedLoadBalancingMode() LoadBalancingMode { return f.advertised }

func (f *fakeBinding) routeCount() int    { return int(f.routed.Load()) }
func (f *fakeBinding) routeAckCount() int { return int(f.routedAck.Load()) }

// asRemoteQueue returns a copy of f configured as a KindRemoteQueue
// binding advertising mode with the given remote id.
func (f *fakeBinding) asRemoteQueue(remoteQueueID int64, mode LoadBalancingMode) *fakeBinding {
	f.kind = KindRemoteQueue
	f.local = false
	f.remoteQueueID = remoteQueueID
	f.advertised = mode
	return f
}
