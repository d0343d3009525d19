// Package routing implements the bindings table: the per-address registry
// that decides, for each inbound message, which queue bindings receive a
// copy.
//
// The table owns three registries (by id, by unique name, and the
// exclusive-binding set) plus a CopyOnWriteRoutingIndex keyed by routing
// name. Routing dispatch runs through a fixed sequence of sub-paths -
// exclusive bindings, explicit cluster directives, grouped sticky
// routing, fully-qualified queue lookup, and plain round-robin - all
// implemented as methods of Table in table.go. The package's files:
//
//	binding.go   Binding contract and the Local/Remote/Divert variants
//	index.go     CopyOnWriteRoutingIndex: routing-name -> (bindings, cursor)
//	selector.go  RouteSelector: per-group binding selection algorithm
//	context.go   RoutingContext: reusable routing-decision accumulator
//	table.go     Table: add/remove/route/redistribute and the dispatch sub-paths
//	message.go   Message type, reserved headers, FQQN parsing
//	errors.go    sentinel errors for the taxonomy this package returns
//	version.go   process-wide monotonic version counter
package routing
