package cmdweb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/internal/suggest"
	"pkt.systems/cmdweb/schema"
)

func testConfig() ServerConfig {
	return ServerConfig{
		Editor: schema.EditorConfig{
			PromptName:       "TEST",
			DebounceInterval: 5 * time.Millisecond,
			LookupTimeout:    time.Second,
			MaxSessions:      4,
		},
		Suggest:  suggest.Config{Source: suggest.SourceStatic, Limit: 5},
		Location: time.UTC,
	}
}

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(testConfig(), ServerDeps{}); err == nil {
		t.Fatalf("expected error without enabled services")
	}
}

func TestNewServiceRunsBuiltinCommands(t *testing.T) {
	sink := &recordingSink{}
	service, closer, err := NewService(context.Background(), testConfig(), ServerDeps{EventSink: sink})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer func() { _ = closer.Close() }()
	defer func() { _ = service.Shutdown(context.Background()) }()

	ctx := context.Background()
	opened, err := service.OpenSession(ctx, schema.OpenSessionRequest{})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if len(opened.State.Transcript) == 0 || !strings.Contains(opened.State.Transcript[0].Text, "(Prompt: TEST)") {
		t.Fatalf("expected banner, got %+v", opened.State.Transcript)
	}
	resp, err := service.Execute(ctx, schema.ExecuteRequest{SessionID: opened.SessionID, Command: "echo hello world"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines := resp.State.Transcript
	if got := lines[len(lines)-1].Text; got != "hello world" {
		t.Fatalf("expected echo output, got %q", got)
	}
	if sink.count() == 0 {
		t.Fatalf("expected state events on the sink")
	}
}

func TestNewServiceRejectsUnknownSource(t *testing.T) {
	cfg := testConfig()
	cfg.Suggest.Source = "bogus"
	if _, _, err := NewService(context.Background(), cfg, ServerDeps{}); err == nil {
		t.Fatalf("expected error for unknown suggest source")
	}
}

func TestEventFanoutDeliversToEverySink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	fanout := eventFanout{sinks: []core.EventSink{first, nil, second}}
	fanout.OnState(schema.StateEvent{SessionID: "s1", Reason: schema.ReasonInput})
	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("expected one event per sink, got %d and %d", first.count(), second.count())
	}
}

func TestServerStopClosesSessions(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Addr = "127.0.0.1:0"
	srv, err := New(cfg, ServerDeps{}, WithHTTP())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	composite := srv.(*compositeServer)
	opened, err := composite.service.OpenSession(context.Background(), schema.OpenSessionRequest{})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("expected second Start to fail")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-composite.ctx.Done():
	default:
		t.Fatalf("expected server context to be canceled")
	}
	_, err = composite.service.GetState(context.Background(), schema.GetStateRequest{SessionID: opened.SessionID})
	if !errors.Is(err, schema.ErrSessionNotFound) {
		t.Fatalf("expected session to be closed, got %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.StateEvent
}

func (r *recordingSink) OnState(event schema.StateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
