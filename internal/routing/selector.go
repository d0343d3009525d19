package routing

// RouteSelector implements the per-group binding selection algorithm:
// given a message, a routing group's current binding snapshot and
// cursor, and the table's load-balancing mode, it picks the next
// binding to receive the message and advances the cursor.
type RouteSelector struct{}

// Select runs the per-group binding selection algorithm. It returns the
// chosen binding and true, or (nil, false) if no binding
// in bindings matches. The cursor is advanced only when a binding is
// actually chosen.
func (RouteSelector) Select(msg *Message, bindings []Binding, cursor *Cursor, mode LoadBalancingMode) (Binding, bool) {
	n := len(bindings)
	if n == 0 {
		return nil, false
	}

	start := cursor.Position(n)
	pos := start
	bestLow := -1

	for i := 0; i < n; i++ {
		b := bindings[pos]
		if matchBinding(msg, b, mode) {
			if n == 1 {
				cursor.Advance(pos, n)
				return b, true
			}
			if b.IsConnected() && (mode == LoadBalanceStrict || b.IsHighAcceptPriority(msg)) {
				cursor.Advance(pos, n)
				return b, true
			}
			if bestLow < 0 || (mode == LoadBalanceOnDemand && b.Kind() == KindLocalQueue) {
				bestLow = pos
			}
		}
		pos = (pos + 1) % n
	}

	if bestLow >= 0 {
		cursor.Advance(bestLow, n)
		return bindings[bestLow], true
	}
	return nil, false
}

// matchBinding reports whether b is eligible to receive msg under mode:
// remote-queue bindings are excluded entirely when mode is Off, and the
// binding's own filter (if any) must match.
func matchBinding(msg *Message, b Binding, mode LoadBalancingMode) bool {
	if mode == LoadBalanceOff && b.Kind() == KindRemoteQueue {
		return false
	}
	f := b.Filter()
	return f == nil || f.Matches(msg)
}
