package eventbus

import (
	"context"
	"sync"

	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// Bus fans editor state events out to per-session subscribers.
// Every event carries a full snapshot, so a slow subscriber loses its oldest
// queued event rather than the newest one.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan schema.StateEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan schema.StateEvent]struct{}),
		log:   logger,
		depth: 64,
	}
}

// Subscribe registers a subscriber for the session and returns a channel + cancel.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan schema.StateEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.StateEvent, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan schema.StateEvent]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	b.log.With("session", sessionID).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[sessionID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("session", sessionID).Debug("eventbus unsubscribe")
		})
	}
}

// OnState publishes a state event.
func (b *Bus) OnState(event schema.StateEvent) {
	b.publish(event.SessionID, event)
}

// Subscribers returns the number of subscribers for a session.
func (b *Bus) Subscribers(sessionID schema.SessionID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// publish sends while holding the lock so cancel cannot close a channel
// mid-send. Sends never block.
func (b *Bus) publish(sessionID schema.SessionID, event schema.StateEvent) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for sub := range b.subs[sessionID] {
		select {
		case sub <- event:
			continue
		default:
		}
		select {
		case <-sub:
			dropped++
		default:
		}
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("session", sessionID).Trace("eventbus dropped", "count", dropped)
	}
}
