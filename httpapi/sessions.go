package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"pkt.systems/cmdweb/internal/logx"
	"pkt.systems/cmdweb/schema"
)

// session binds a browser cookie to one terminal session.
type session struct {
	id        schema.SessionID
	expiresAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	baseCtx  context.Context
	items    map[string]session
	onExpire func(schema.SessionID)
	now      func() time.Time
	random   io.Reader
}

func newSessionStore(ttl time.Duration, onExpire func(schema.SessionID)) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		baseCtx:  context.TODO(),
		items:    make(map[string]session),
		onExpire: onExpire,
		now:      time.Now,
		random:   rand.Reader,
	}
}

func (s *sessionStore) create(sessionID schema.SessionID) (string, session, error) {
	token, err := randomToken(s.random, 32)
	if err != nil {
		return "", session{}, err
	}
	s.sweep()
	s.mu.Lock()
	entry := s.newSessionLocked(sessionID, s.now().Add(s.ttl))
	s.items[token] = entry
	s.mu.Unlock()
	logx.WithSession(context.Background(), sessionID).Info("http session created", "expires", entry.expiresAt.Format(time.RFC3339))
	return token, entry, nil
}

func (s *sessionStore) get(token string) (session, bool) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if !ok {
		s.mu.Unlock()
		return session{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.items, token)
		s.mu.Unlock()
		s.expire(entry)
		return session{}, false
	}
	s.mu.Unlock()
	return entry, true
}

// delete drops the cookie binding without invoking onExpire.
func (s *sessionStore) delete(token string) (session, bool) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	s.mu.Unlock()
	if ok {
		if entry.cancel != nil {
			entry.cancel()
		}
		logx.WithSession(context.Background(), entry.id).Info("http session deleted")
	}
	return entry, ok
}

// sweep expires every stale entry.
func (s *sessionStore) sweep() int {
	now := s.now()
	var expired []session
	s.mu.Lock()
	for token, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, token)
			expired = append(expired, entry)
		}
	}
	s.mu.Unlock()
	for _, entry := range expired {
		s.expire(entry)
	}
	return len(expired)
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *sessionStore) expire(entry session) {
	if entry.cancel != nil {
		entry.cancel()
	}
	logx.WithSession(context.Background(), entry.id).Info("http session expired")
	if s.onExpire != nil {
		s.onExpire(entry.id)
	}
}

func (s *sessionStore) setBaseContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	s.mu.Lock()
	s.baseCtx = ctx
	for token, entry := range s.items {
		if entry.cancel != nil {
			entry.cancel()
		}
		s.items[token] = s.newSessionLocked(entry.id, entry.expiresAt)
	}
	s.mu.Unlock()
	logx.Ctx(context.Background()).Debug("http session base context set")
}

func (s *sessionStore) newSessionLocked(sessionID schema.SessionID, expiresAt time.Time) session {
	parent := s.baseCtx
	if parent == nil {
		parent = context.TODO()
	}
	parent = logx.ContextWithSession(parent, sessionID)
	ctx, cancel := context.WithCancel(parent)
	return session{
		id:        sessionID,
		expiresAt: expiresAt,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func randomToken(r io.Reader, size int) (string, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
