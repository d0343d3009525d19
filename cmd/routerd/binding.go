package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/routecore/router/internal/routing"
)

// consoleBinding is a Binding that prints every delivery to stdout
// instead of handing it to a real consumer. It exists only for the
// route demo subcommand, where there is no post office to supply real
// bindings.
type consoleBinding struct {
	id          int64
	uniqueName  string
	routingName string
	clusterName string
	exclusive   bool
	local       bool
	connected   bool
	highAccept  bool
	kind        routing.Kind

	remoteQueueID int64
	advertisedLB  routing.LoadBalancingMode

	deliveries atomic.Int64
}

func newConsoleBinding(id int64, uniqueName, routingName string) *consoleBinding {
	return &consoleBinding{
		id:          id,
		uniqueName:  uniqueName,
		routingName: routingName,
		clusterName: "local",
		local:       true,
		connected:   true,
		highAccept:  true,
		kind:        routing.KindLocalQueue,
	}
}

func (b *consoleBinding) ID() int64             { return b.id }
func (b *consoleBinding) UniqueName() string    { return b.uniqueName }
func (b *consoleBinding) RoutingName() string   { return b.routingName }
func (b *consoleBinding) ClusterName() string   { return b.clusterName }
func (b *consoleBinding) Filter() routing.Filter { return nil }
func (b *consoleBinding) IsExclusive() bool     { return b.exclusive }
func (b *consoleBinding) IsLocal() bool         { return b.local }
func (b *consoleBinding) IsConnected() bool     { return b.connected }

func (b *consoleBinding) IsHighAcceptPriority(msg *routing.Message) bool { return b.highAccept }

func (b *consoleBinding) Kind() routing.Kind { return b.kind }

func (b *consoleBinding) Route(ctx context.Context, msg *routing.Message, rctx routing.RoutingContext) error {
	n := b.deliveries.Add(1)
	fmt.Fprintf(os.Stdout, "  -> %s delivers %q (delivery #%d)\n", b.uniqueName, msg.Address, n)
	return nil
}

func (b *consoleBinding) RouteWithAck(ctx context.Context, msg *routing.Message, rctx routing.RoutingContext) error {
	n := b.deliveries.Add(1)
	fmt.Fprintf(os.Stdout, "  -> %s delivers (ack) %q (delivery #%d)\n", b.uniqueName, msg.Address, n)
	return nil
}

func (b *consoleBinding) Unproposed(groupID string) {
	fmt.Fprintf(os.Stdout, "  -- %s: group %q proposal cleared\n", b.uniqueName, groupID)
}

func (b *consoleBinding) RemoteQueueID() int64 { return b.remoteQueueID }

func (b *consoleBinding) AdvertisedLoadBalancingMode() routing.LoadBalancingMode {
	return b.advertisedLB
}

// asRemoteQueue turns the binding into a KindRemoteQueue binding
// advertising mode, as a cluster peer's bridge link would.
func (b *consoleBinding) asRemoteQueue(remoteQueueID int64, mode routing.LoadBalancingMode) *consoleBinding {
	b.local = false
	b.kind = routing.KindRemoteQueue
	b.remoteQueueID = remoteQueueID
	b.advertisedLB = mode
	return b
}
