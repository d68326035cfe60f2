package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"
	"time"

	"pkt.systems/cmdweb"
	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/httpapi"
	"pkt.systems/cmdweb/internal/eventbus"
	"pkt.systems/cmdweb/internal/suggest"
	"pkt.systems/cmdweb/schema"
)

type testServer struct {
	service core.Service
	hub     *httpapi.Hub
	bus     *eventbus.Bus
	httpSrv *httpapi.Server
}

type sinks []core.EventSink

func (s sinks) OnState(event schema.StateEvent) {
	for _, sink := range s {
		sink.OnState(event)
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hub := httpapi.NewHub(64)
	bus := eventbus.New(nil)
	service, closer, err := cmdweb.NewService(context.Background(), cmdweb.ServerConfig{
		Editor: schema.EditorConfig{
			PromptName:       "TEST",
			DebounceInterval: 20 * time.Millisecond,
			LookupTimeout:    time.Second,
			MaxSessions:      8,
		},
		Suggest:  suggest.Config{Source: suggest.SourceStatic, Limit: 5, Fuzzy: true},
		Location: time.UTC,
	}, cmdweb.ServerDeps{EventSink: sinks{hub, bus}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = service.Shutdown(context.Background())
		_ = closer.Close()
	})
	httpSrv := httpapi.NewServer(httpapi.Config{
		Addr:            "127.0.0.1:0",
		SessionCookie:   "cmdweb_session",
		SessionTTLHours: 1,
	}, service, hub)
	return &testServer{service: service, hub: hub, bus: bus, httpSrv: httpSrv}
}

type sessionResponse struct {
	SessionID schema.SessionID      `json:"session_id"`
	State     schema.EditorSnapshot `json:"state"`
}

type stateResponse struct {
	State schema.EditorSnapshot `json:"state"`
}

// openSession returns a cookie-bound client with a fresh terminal.
func openSession(t *testing.T, baseURL string) (*http.Client, sessionResponse) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	var opened sessionResponse
	readJSON(t, writeJSON(t, client, baseURL+"/api/session", map[string]any{}), &opened)
	return client, opened
}

func typeText(t *testing.T, client *http.Client, baseURL, text string) schema.EditorSnapshot {
	t.Helper()
	var resp stateResponse
	for _, r := range text {
		readJSON(t, writeJSON(t, client, baseURL+"/api/key", map[string]string{"key": "rune", "text": string(r)}), &resp)
	}
	return resp.State
}

func pressKey(t *testing.T, client *http.Client, baseURL, key string) schema.EditorSnapshot {
	t.Helper()
	var resp stateResponse
	readJSON(t, writeJSON(t, client, baseURL+"/api/key", map[string]string{"key": key}), &resp)
	return resp.State
}

func writeJSON(t *testing.T, client *http.Client, url string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func readJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode >= 300 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatal(err)
	}
}

func transcriptTexts(state schema.EditorSnapshot) []string {
	out := make([]string, 0, len(state.Transcript))
	for _, line := range state.Transcript {
		out = append(out, line.Text)
	}
	return out
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func containsAll(value string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(value, term) {
			return false
		}
	}
	return true
}
