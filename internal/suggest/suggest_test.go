package suggest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var builtins = []string{"cls", "date", "echo", "exit", "help", "time", "ver"}

func TestFuzzyScorePrefersStartAndConsecutive(t *testing.T) {
	tight, ok := fuzzyScore("he", "help")
	if !ok {
		t.Fatalf("expected he to match help")
	}
	loose, ok := fuzzyScore("hp", "help")
	if !ok {
		t.Fatalf("expected hp to match help")
	}
	if tight <= loose {
		t.Fatalf("expected consecutive match to score higher: %d <= %d", tight, loose)
	}
	if _, ok := fuzzyScore("xyz", "help"); ok {
		t.Fatalf("expected xyz not to match")
	}
	if _, ok := fuzzyScore("helpme", "help"); ok {
		t.Fatalf("expected longer query not to match")
	}
	camel, _ := fuzzyScore("gS", "getState")
	flat, _ := fuzzyScore("gS", "gxsxxxxx")
	if camel <= flat {
		t.Fatalf("expected camelCase boundary bonus: %d <= %d", camel, flat)
	}
}

func TestStaticPrefixMatches(t *testing.T) {
	s := NewStatic(builtins, Options{})
	got, err := s.Lookup(context.Background(), "e")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if diff := cmp.Diff([]string{"echo", "exit"}, got); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	got, _ = s.Lookup(context.Background(), "EC")
	if diff := cmp.Diff([]string{"echo"}, got); diff != "" {
		t.Fatalf("case-insensitive mismatch (-want +got):\n%s", diff)
	}
	got, _ = s.Lookup(context.Background(), "zz")
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestStaticFuzzyAfterPrefix(t *testing.T) {
	s := NewStatic([]string{"cls", "echo", "exit", "ver", "clear-screen"}, Options{Fuzzy: true})
	got, _ := s.Lookup(context.Background(), "cs")
	if diff := cmp.Diff([]string{"clear-screen", "cls"}, got); diff != "" {
		t.Fatalf("fuzzy mismatch (-want +got):\n%s", diff)
	}
	got, _ = s.Lookup(context.Background(), "cl")
	if got[0] != "cls" || got[1] != "clear-screen" {
		t.Fatalf("expected prefix matches first, got %v", got)
	}
}

func TestStaticLimitAndDedupe(t *testing.T) {
	s := NewStatic([]string{"a1", "a2", "a2", " ", "a3"}, Options{Limit: 2})
	got, _ := s.Lookup(context.Background(), "a")
	if diff := cmp.Diff([]string{"a1", "a2"}, got); diff != "" {
		t.Fatalf("limit mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a1", "a2", "a3"}, s.Words()); diff != "" {
		t.Fatalf("words mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticHonorsContext(t *testing.T) {
	s := NewStatic(builtins, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Lookup(ctx, "e"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileVocabularyReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	if err := os.WriteFile(path, []byte("# comment\ndeploy\n\ndescribe\n"), 0o600); err != nil {
		t.Fatalf("write vocabulary: %v", err)
	}
	f, err := OpenFileVocabulary(context.Background(), path, []string{"date"}, Options{})
	if err != nil {
		t.Fatalf("open vocabulary: %v", err)
	}
	defer f.Close()

	got, _ := f.Lookup(context.Background(), "d")
	if diff := cmp.Diff([]string{"date", "deploy", "describe"}, got); diff != "" {
		t.Fatalf("initial mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("destroy\n"), 0o600); err != nil {
		t.Fatalf("rewrite vocabulary: %v", err)
	}
	want := []string{"date", "destroy"}
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, _ = f.Lookup(context.Background(), "d")
		if cmp.Equal(want, got) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("vocabulary not reloaded, got %v", got)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFileVocabularyMissingFile(t *testing.T) {
	if _, err := OpenFileVocabulary(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, Options{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := OpenFileVocabulary(context.Background(), " ", nil, Options{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestRemoteLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		var req remoteRequest
		if err := jsonDecode(r, &req); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		switch req.CommandPrefix {
		case "gi":
			_, _ = w.Write([]byte(`{"suggestions":["git status","git log"," ","git status"]}`))
		case "broken":
			_, _ = w.Write([]byte(`{"suggestions":`))
		default:
			http.Error(w, "down", http.StatusBadGateway)
		}
	}))
	defer server.Close()

	remote, err := NewRemote(server.URL, server.Client(), 5)
	if err != nil {
		t.Fatalf("new remote: %v", err)
	}
	got, err := remote.Lookup(context.Background(), "gi")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if diff := cmp.Diff([]string{"git status", "git log"}, got); diff != "" {
		t.Fatalf("remote mismatch (-want +got):\n%s", diff)
	}
	if _, err := remote.Lookup(context.Background(), "zz"); !errors.Is(err, schema.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable for status, got %v", err)
	}
	if _, err := remote.Lookup(context.Background(), "broken"); !errors.Is(err, schema.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable for bad json, got %v", err)
	}
}

func TestNewRemoteRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "::"} {
		if _, err := NewRemote(raw, nil, 0); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

type countingProvider struct {
	calls   atomic.Int32
	release chan struct{}
	words   []string
	err     error
}

func (p *countingProvider) Lookup(ctx context.Context, _ string) ([]string, error) {
	p.calls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.words, p.err
}

func TestSharedCollapsesConcurrentLookups(t *testing.T) {
	next := &countingProvider{release: make(chan struct{}), words: []string{"echo"}}
	shared := NewShared(next)

	var wg sync.WaitGroup
	results := make([][]string, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = shared.Lookup(context.Background(), "ec")
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for next.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("shared lookup never started")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(next.release)
	wg.Wait()

	if n := next.calls.Load(); n != 1 {
		t.Fatalf("expected one underlying call, got %d", n)
	}
	for i, got := range results {
		if diff := cmp.Diff([]string{"echo"}, got); diff != "" {
			t.Fatalf("caller %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestSharedCallerCancellation(t *testing.T) {
	next := &countingProvider{release: make(chan struct{}), words: []string{"echo"}}
	shared := NewShared(next)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := shared.Lookup(ctx, "ec")
		done <- err
	}()
	for next.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(next.release)
	got, err := shared.Lookup(context.Background(), "ec")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected later lookup to succeed, got %v %v", got, err)
	}
}

func TestLimitedRejectsBeyondBurst(t *testing.T) {
	next := &countingProvider{words: []string{"ver"}}
	limited := NewLimited(next, 0.001, 2)
	for i := 0; i < 2; i++ {
		if _, err := limited.Lookup(context.Background(), "v"); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
	if _, err := limited.Lookup(context.Background(), "v"); !errors.Is(err, schema.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if n := next.calls.Load(); n != 2 {
		t.Fatalf("expected 2 forwarded calls, got %d", n)
	}
}

func TestLimitedDisabled(t *testing.T) {
	next := &countingProvider{}
	limited := NewLimited(next, 0, 0)
	for i := 0; i < 50; i++ {
		if _, err := limited.Lookup(context.Background(), "v"); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
}

func TestMergedKeepsOrderAndToleratesFailure(t *testing.T) {
	first := core.ProviderFunc(func(context.Context, string) ([]string, error) {
		return []string{"echo", "exit"}, nil
	})
	failing := &countingProvider{err: errors.New("down")}
	second := core.ProviderFunc(func(context.Context, string) ([]string, error) {
		return []string{"exit", "eject"}, nil
	})
	merged := NewMerged(3, first, failing, second)
	got, err := merged.Lookup(context.Background(), "e")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if diff := cmp.Diff([]string{"echo", "exit", "eject"}, got); diff != "" {
		t.Fatalf("merged mismatch (-want +got):\n%s", diff)
	}

	allFail := NewMerged(0, failing, failing)
	if _, err := allFail.Lookup(context.Background(), "e"); err == nil {
		t.Fatalf("expected error when every source fails")
	}
}

func TestBuildChains(t *testing.T) {
	provider, closer, err := Build(context.Background(), Config{Source: "static", RatePerSecond: 10, Burst: 5}, builtins)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer closer.Close()
	if _, ok := provider.(*Limited); !ok {
		t.Fatalf("expected rate-limited provider, got %T", provider)
	}
	got, err := provider.Lookup(context.Background(), "ve")
	if err != nil || len(got) != 1 || got[0] != "ver" {
		t.Fatalf("unexpected lookup result %v %v", got, err)
	}

	provider, closer, err = Build(context.Background(), Config{Source: "none"}, builtins)
	if err != nil {
		t.Fatalf("build none: %v", err)
	}
	defer closer.Close()
	if provider != nil {
		t.Fatalf("expected nil provider for none, got %T", provider)
	}

	if _, _, err := Build(context.Background(), Config{Source: "telepathy"}, builtins); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestBuildMergesStaticAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("deploy\n"), 0o600); err != nil {
		t.Fatalf("write vocabulary: %v", err)
	}
	provider, closer, err := Build(context.Background(), Config{Source: "static, file", VocabularyFile: path}, []string{"date"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer closer.Close()
	got, err := provider.Lookup(context.Background(), "d")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if diff := cmp.Diff([]string{"date", "deploy"}, got); diff != "" {
		t.Fatalf("build mismatch (-want +got):\n%s", diff)
	}
}
