package sshserver

import (
	"context"
	"strings"
	"testing"

	"pkt.systems/cmdweb/schema"
)

func TestRunTerminalExecutesAndExits(t *testing.T) {
	service, state := newTestService(t, nil)
	out := &lockedBuffer{}
	rw := pipeRW{Reader: strings.NewReader("echo local\r\x04"), Writer: out}
	err := RunTerminal(context.Background(), rw, service, state, TerminalOptions{Width: 60, Height: 10})
	if err != nil {
		t.Fatalf("RunTerminal: %v", err)
	}
	resp, err := service.GetState(context.Background(), schema.GetStateRequest{SessionID: state.SessionID})
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	lines := resp.State.Transcript
	if got := lines[len(lines)-1].Text; got != "local" {
		t.Fatalf("expected echo output, got %q", got)
	}
	if !strings.Contains(out.String(), "local") {
		t.Fatalf("expected output to be rendered")
	}
}

func TestRunTerminalRejectsMissingSession(t *testing.T) {
	service, _ := newTestService(t, nil)
	err := RunTerminal(context.Background(), pipeRW{Reader: strings.NewReader(""), Writer: &lockedBuffer{}}, service, schema.EditorSnapshot{}, TerminalOptions{})
	if err == nil {
		t.Fatalf("expected error for empty session id")
	}
}
