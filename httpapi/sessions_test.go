package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/cmdweb/schema"
)

type sessionTestKey struct{}

func TestSessionStoreCreateGetDelete(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	id := schema.NewSessionID()
	token, sess, err := store.create(id)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if sess.id != id {
		t.Fatalf("unexpected session id: %q", sess.id)
	}
	if sess.ctx == nil {
		t.Fatalf("expected session context")
	}
	if _, ok := store.get(token); !ok {
		t.Fatalf("expected session to be found")
	}
	if _, ok := store.delete(token); !ok {
		t.Fatalf("expected delete to report the entry")
	}
	if _, ok := store.get(token); ok {
		t.Fatalf("expected session to be deleted")
	}
	select {
	case <-sess.ctx.Done():
	default:
		t.Fatalf("expected session context to be canceled")
	}
}

func TestSessionStoreExpirationCallsOnExpire(t *testing.T) {
	var expired []schema.SessionID
	store := newSessionStore(time.Minute, func(id schema.SessionID) {
		expired = append(expired, id)
	})
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	id := schema.NewSessionID()
	token, sess, _ := store.create(id)
	now = now.Add(2 * time.Minute)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected expired session")
	}
	select {
	case <-sess.ctx.Done():
	default:
		t.Fatalf("expected session context to be canceled")
	}
	if len(expired) != 1 || expired[0] != id {
		t.Fatalf("expected onExpire for %s, got %v", id, expired)
	}
}

func TestSessionStoreSweep(t *testing.T) {
	count := 0
	store := newSessionStore(time.Minute, func(schema.SessionID) { count++ })
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.create(schema.NewSessionID())
	store.create(schema.NewSessionID())
	now = now.Add(2 * time.Minute)
	store.create(schema.NewSessionID())
	if count != 2 {
		t.Fatalf("expected two expirations during create, got %d", count)
	}
	if store.len() != 1 {
		t.Fatalf("expected one live entry, got %d", store.len())
	}
}

func TestSessionStoreBaseContext(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	baseKey := sessionTestKey{}
	base := context.WithValue(context.Background(), baseKey, "value")
	store.setBaseContext(base)
	_, sess, _ := store.create(schema.NewSessionID())
	if got := sess.ctx.Value(baseKey); got != "value" {
		t.Fatalf("expected base context value, got %v", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func TestSessionStoreCreateFailsWithoutRandomness(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	store.random = failingReader{}
	token, _, err := store.create(schema.NewSessionID())
	if err == nil {
		t.Fatalf("expected token error")
	}
	if token != "" {
		t.Fatalf("expected no token, got %q", token)
	}
	if store.len() != 0 {
		t.Fatalf("expected no stored session, got %d", store.len())
	}
	if _, ok := store.get(""); ok {
		t.Fatalf("expected empty token to be unknown")
	}
}
