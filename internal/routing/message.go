package routing

import (
	"encoding/binary"
	"strings"
)

// Reserved message property names consumed by the routing core. Their
// values are always a big-endian sequence of 64-bit integers.
const (
	// HDRScaleDownToIDs carries remote queue ids when a scaled-down
	// broker is forwarding its backlog to its peers. Translated to
	// HDRRouteToIDs (local binding ids) and removed from the message.
	HDRScaleDownToIDs = "_DR_SCALEDOWN_TO_IDS"

	// HDRRouteToIDs is an explicit cluster-bridge route directive:
	// local binding ids the message must be delivered to. Removed from
	// the message once consumed.
	HDRRouteToIDs = "_DR_ROUTE_TO_IDS"

	// HDRRouteToAckIDs is the subset of HDRRouteToIDs that must be
	// routed through the acknowledging variant of Binding.Route.
	// Removed from the message once consumed.
	HDRRouteToAckIDs = "_DR_ROUTE_TO_ACK_IDS"
)

// fqqnSeparator splits a fully-qualified queue name (address::queue)
// into its address and queue components.
const fqqnSeparator = "::"

// Message is the minimal view of an inbound message the routing core
// needs: an address, an optional message-group id, and a set of
// properties used for the reserved headers above. Message persistence,
// body encoding, and protocol framing are handled entirely upstream;
// this core never inspects or mutates anything but these fields.
type Message struct {
	// Address is the destination address string as seen by the post
	// office, e.g. "orders" or "orders::retry-queue" for a
	// fully-qualified target.
	Address string

	// GroupID is the optional message-group identifier used by the
	// strict sticky-routing path. Empty means "not grouped".
	GroupID string

	properties map[string][]byte
}

// NewMessage creates a Message addressed to addr with no properties set.
func NewMessage(addr string) *Message {
	return &Message{Address: addr}
}

// SetProperty sets a raw property value on the message.
func (m *Message) SetProperty(name string, value []byte) {
	if m.properties == nil {
		m.properties = make(map[string][]byte)
	}
	m.properties[name] = value
}

// Property returns the raw value of a property and whether it was set.
func (m *Message) Property(name string) ([]byte, bool) {
	if m.properties == nil {
		return nil, false
	}
	v, ok := m.properties[name]
	return v, ok
}

// RemoveProperty deletes a property, returning its prior value if set.
// Used to "consume" the reserved routing headers once the dispatch
// protocol has acted on them.
func (m *Message) RemoveProperty(name string) ([]byte, bool) {
	if m.properties == nil {
		return nil, false
	}
	v, ok := m.properties[name]
	if ok {
		delete(m.properties, name)
	}
	return v, ok
}

// SetIDsProperty encodes ids as a big-endian int64 sequence and stores
// it under name.
func (m *Message) SetIDsProperty(name string, ids []int64) {
	m.SetProperty(name, EncodeIDs(ids))
}

// IDsProperty decodes and removes a big-endian int64 sequence property,
// if present.
func (m *Message) IDsProperty(name string) ([]int64, bool) {
	raw, ok := m.RemoveProperty(name)
	if !ok {
		return nil, false
	}
	return DecodeIDs(raw), true
}

// EncodeIDs serializes a slice of 64-bit ids as big-endian bytes, one
// after another, matching the wire format the reserved headers use.
func EncodeIDs(ids []int64) []byte {
	buf := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(id))
	}
	return buf
}

// DecodeIDs parses a big-endian int64 sequence produced by EncodeIDs.
// Trailing bytes that don't form a full 8-byte group are ignored.
func DecodeIDs(raw []byte) []int64 {
	n := len(raw) / 8
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
	}
	return ids
}

// SplitFQQN splits an address of the form "address::queue" into its
// address and queue parts. ok is false if addr does not contain the
// FQQN separator, in which case addr is returned unchanged as the
// address with an empty queue.
func SplitFQQN(addr string) (address, queue string, ok bool) {
	idx := strings.Index(addr, fqqnSeparator)
	if idx < 0 {
		return addr, "", false
	}
	return addr[:idx], addr[idx+len(fqqnSeparator):], true
}
