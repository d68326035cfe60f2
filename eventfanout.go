package cmdweb

import (
	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnState(event schema.StateEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnState(event)
	}
}
