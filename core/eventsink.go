package core

import "pkt.systems/cmdweb/schema"

// EventSink receives editor state changes. Calls are serialized per editor
// and made without holding the editor lock.
type EventSink interface {
	OnState(event schema.StateEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event schema.StateEvent)

// OnState calls f.
func (f EventSinkFunc) OnState(event schema.StateEvent) {
	f(event)
}
