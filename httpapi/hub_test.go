package httpapi

import (
	"testing"

	"pkt.systems/cmdweb/schema"
)

func TestHubReplayAndHistoryLimit(t *testing.T) {
	hub := NewHub(2)
	id := schema.NewSessionID()
	for _, input := range []string{"a", "ab", "abc"} {
		hub.OnState(schema.StateEvent{SessionID: id, Reason: schema.ReasonKey, State: schema.EditorSnapshot{Input: input}})
	}
	events := hub.Replay(id, 0)
	if len(events) != 2 {
		t.Fatalf("expected history trimmed to 2, got %d", len(events))
	}
	if events[0].Seq != 2 || events[1].State.Input != "abc" {
		t.Fatalf("unexpected replay %+v", events)
	}
	if got := hub.Replay(id, 3); len(got) != 0 {
		t.Fatalf("expected empty replay after latest seq, got %d", len(got))
	}
}

func TestHubSubscribeReceivesEvents(t *testing.T) {
	hub := NewHub(4)
	id := schema.NewSessionID()
	ch, unsub, seq := hub.Subscribe(id)
	defer unsub()
	if seq != 0 {
		t.Fatalf("expected seq 0, got %d", seq)
	}
	hub.OnState(schema.StateEvent{SessionID: id, Reason: schema.ReasonInput, State: schema.EditorSnapshot{Input: "x"}})
	event := <-ch
	if event.Seq != 1 || event.Reason != schema.ReasonInput {
		t.Fatalf("unexpected event %+v", event)
	}
	other, unsubOther, _ := hub.Subscribe(schema.NewSessionID())
	defer unsubOther()
	select {
	case ev := <-other:
		t.Fatalf("unexpected cross-session event %+v", ev)
	default:
	}
}

func TestHubForgetsClosedSessions(t *testing.T) {
	hub := NewHub(4)
	id := schema.NewSessionID()
	hub.OnState(schema.StateEvent{SessionID: id, Reason: schema.ReasonOpened})
	_, unsub, _ := hub.Subscribe(id)
	hub.OnState(schema.StateEvent{SessionID: id, Reason: schema.ReasonClosed})
	if hub.Sessions() != 1 {
		t.Fatalf("expected hub to keep session while subscribed")
	}
	unsub()
	unsub()
	if hub.Sessions() != 0 {
		t.Fatalf("expected hub to drop closed session, got %d", hub.Sessions())
	}
	closedID := schema.NewSessionID()
	hub.OnState(schema.StateEvent{SessionID: closedID, Reason: schema.ReasonClosed})
	if hub.Sessions() != 0 {
		t.Fatalf("expected closed session without subscribers to be dropped")
	}
}
