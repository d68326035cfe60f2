package eventbus

import (
	"testing"
	"time"

	"pkt.systems/cmdweb/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	event := schema.StateEvent{SessionID: "s1", Reason: schema.ReasonKey, State: schema.EditorSnapshot{Input: "ve"}}
	bus.OnState(event)
	bus.OnState(schema.StateEvent{SessionID: "s2", Reason: schema.ReasonKey})

	select {
	case got := <-ch:
		if got.Reason != schema.ReasonKey || got.State.Input != "ve" {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
	select {
	case got := <-ch:
		t.Fatalf("received event for another session: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if n := bus.Subscribers("s1"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	bus.OnState(schema.StateEvent{SessionID: "s1"})
}

func TestPublishKeepsNewestWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		bus.OnState(schema.StateEvent{SessionID: "s1", State: schema.EditorSnapshot{Input: "old"}})
		bus.OnState(schema.StateEvent{SessionID: "s1", State: schema.EditorSnapshot{Input: "new"}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
	got := <-ch
	if got.State.Input != "new" {
		t.Fatalf("expected newest event, got %q", got.State.Input)
	}
}
