package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/internal/logx"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// Server serves the HTTP API and UI.
type Server struct {
	cfg      Config
	service  core.Service
	sessions *sessionStore
	hub      *Hub
	basePath string
	baseHref string
}

// NewServer constructs an HTTP server. The hub must be registered as an event
// sink on the service for /api/stream to deliver updates.
func NewServer(cfg Config, service core.Service, hub *Hub) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		cfg.SessionCookie = "cmdweb_session"
	}
	if hub == nil {
		hub = NewHub(cfg.HubHistory)
	}
	s := &Server{
		cfg:      cfg,
		service:  service,
		hub:      hub,
		basePath: cleanBasePath(cfg.BasePath),
		baseHref: baseHref(cfg.BaseURL, cfg.BasePath),
	}
	s.sessions = newSessionStore(ttl, s.closeExpired)
	return s
}

// SetBaseContext sets the parent context for session lifetimes.
func (s *Server) SetBaseContext(ctx context.Context) {
	if s == nil || ctx == nil {
		return
	}
	s.sessions.setBaseContext(ctx)
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", staticHandler()))

	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/state", s.requireSession(s.handleState))
	mux.HandleFunc("/api/key", s.requireSession(s.handleKey))
	mux.HandleFunc("/api/input", s.requireSession(s.handleInput))
	mux.HandleFunc("/api/suggestions/pick", s.requireSession(s.handlePick))
	mux.HandleFunc("/api/execute", s.requireSession(s.handleExecute))
	mux.HandleFunc("/api/settings", s.requireSession(s.handleSettings))
	mux.HandleFunc("/api/stream", s.requireSession(s.handleStream))

	return mount(s.basePath, withRequestLogging(mux, s.lookupSession))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := renderIndex(indexData{BaseHref: s.baseHref})
	if err != nil {
		pslog.Ctx(r.Context()).Error("http index render failed", "err", err)
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "index.html", assetsModTime, bytes.NewReader(page))
}

type stateResponse struct {
	State schema.EditorSnapshot `json:"state"`
}

type openResponse struct {
	SessionID schema.SessionID      `json:"session_id"`
	State     schema.EditorSnapshot `json:"state"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleOpen(w, r)
	case http.MethodDelete:
		s.handleClose(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	var payload struct {
		PromptName string `json:"prompt_name"`
	}
	if err := decodeOptionalJSON(r.Body, &payload); err != nil {
		log.Warn("http session decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if token := s.sessionToken(r); token != "" {
		if previous, ok := s.sessions.delete(token); ok {
			s.closeSession(r.Context(), previous.id)
		}
	}
	resp, err := s.service.OpenSession(r.Context(), schema.OpenSessionRequest{PromptName: payload.PromptName})
	if err != nil {
		log.Warn("http session open failed", "err", err)
		writeServiceError(w, err)
		return
	}
	token, sess, err := s.sessions.create(resp.SessionID)
	if err != nil {
		log.With("session", resp.SessionID).Error("http session token failed", "err", err)
		s.closeSession(r.Context(), resp.SessionID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.expiresAt,
	})
	writeJSON(w, http.StatusOK, openResponse{SessionID: resp.SessionID, State: resp.State})
	log.With("session", resp.SessionID).Info("http session open ok")
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	if token := s.sessionToken(r); token != "" {
		if entry, ok := s.sessions.delete(token); ok {
			log = log.With("session", entry.id)
			s.closeSession(r.Context(), entry.id)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	log.Info("http session close ok")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.GetState(sessionContext(r.Context()), schema.GetStateRequest{SessionID: sessionID})
	if err != nil {
		s.fail(w, r, "http state failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: resp.State})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload struct {
		Key  string `json:"key"`
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http key decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, err := schema.NormalizeKeyKind(payload.Key)
	if err != nil {
		log.Warn("http key rejected", "key", payload.Key)
		writeServiceError(w, err)
		return
	}
	resp, err := s.service.SendKey(sessionContext(r.Context()), schema.SendKeyRequest{
		SessionID: sessionID,
		Key:       schema.KeyEvent{Kind: kind, Text: payload.Text},
	})
	if err != nil {
		s.fail(w, r, "http key failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: resp.State})
	log.Debug("http key ok", "key", kind)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http input decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.SetInput(sessionContext(r.Context()), schema.SetInputRequest{
		SessionID: sessionID,
		Text:      payload.Text,
	})
	if err != nil {
		s.fail(w, r, "http input failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: resp.State})
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http pick decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Index == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: index is required", schema.ErrInvalidSuggestion))
		return
	}
	resp, err := s.service.PickSuggestion(sessionContext(r.Context()), schema.PickSuggestionRequest{
		SessionID: sessionID,
		Index:     *payload.Index,
	})
	if err != nil {
		s.fail(w, r, "http pick failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: resp.State})
	logx.Ctx(r.Context()).Info("http pick ok", "index", *payload.Index)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http execute decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.Execute(sessionContext(r.Context()), schema.ExecuteRequest{
		SessionID: sessionID,
		Command:   payload.Command,
	})
	if err != nil {
		s.fail(w, r, "http execute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: resp.State})
	log.Info("http execute ok", "command_len", len(payload.Command))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		PromptName string `json:"prompt_name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http settings decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.SetPrompt(sessionContext(r.Context()), schema.SetPromptRequest{
		SessionID:  sessionID,
		PromptName: payload.PromptName,
	})
	if err != nil {
		s.fail(w, r, "http settings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: resp.State})
	logx.Ctx(r.Context()).Info("http settings ok", "prompt", resp.State.Prompt)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context())
	ctx := sessionContext(r.Context())

	ch, unsubscribe, subscribedAt := s.hub.Subscribe(sessionID)
	defer unsubscribe()

	state, err := s.service.GetState(ctx, schema.GetStateRequest{SessionID: sessionID})
	if err != nil {
		s.fail(w, r, "http stream state failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshot := state.State
	_ = writeSSEvent(w, StreamEvent{
		Type:      streamSnapshot,
		State:     &snapshot,
		Timestamp: time.Now(),
	})

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	replayCount := 0
	if lastID > 0 {
		for _, event := range s.hub.Replay(sessionID, lastID) {
			if event.Seq > subscribedAt {
				break
			}
			_ = writeSSEvent(w, event)
			replayCount++
		}
	}
	flusher.Flush()

	done := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-done:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
			if event.Reason == schema.ReasonClosed {
				log.Info("http stream ended", "reason", event.Reason)
				return
			}
		}
	}
}

func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, schema.SessionID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logx.Ctx(r.Context()).With("remote", clientIP(r))
		token := s.sessionToken(r)
		if token == "" {
			log.Warn("http session missing")
			writeError(w, http.StatusUnauthorized, errors.New("missing session"))
			return
		}
		entry, ok := s.sessions.get(token)
		if !ok {
			log.Warn("http session invalid")
			writeError(w, http.StatusUnauthorized, errors.New("invalid session"))
			return
		}
		log = log.With("session", entry.id)
		ctx := logx.ContextWithSessionLogger(r.Context(), log, entry.id)
		ctx = logx.ContextWithTransport(ctx, "http")
		ctx = withSessionContext(ctx, entry)
		next(w, r.WithContext(ctx), entry.id)
	}
}

// fail logs err and writes the mapped status. Unknown sessions also drop the
// cookie binding so the client can reopen.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logx.Ctx(r.Context()).Warn(msg, "err", err)
	if errors.Is(err, schema.ErrSessionNotFound) || errors.Is(err, schema.ErrEditorClosed) {
		if token := s.sessionToken(r); token != "" {
			s.sessions.delete(token)
		}
	}
	writeServiceError(w, err)
}

func (s *Server) closeSession(ctx context.Context, sessionID schema.SessionID) {
	if _, err := s.service.CloseSession(ctx, schema.CloseSessionRequest{SessionID: sessionID}); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		logx.WithSession(ctx, sessionID).Warn("http session close failed", "err", err)
	}
}

func (s *Server) closeExpired(sessionID schema.SessionID) {
	s.closeSession(context.Background(), sessionID)
}

type sessionContextKey struct{}

func withSessionContext(ctx context.Context, sess session) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// sessionContext returns the session-scoped context carrying the request logger.
func sessionContext(ctx context.Context) context.Context {
	if ctx == nil {
		return nil
	}
	sess, ok := ctx.Value(sessionContextKey{}).(session)
	if !ok || sess.ctx == nil {
		return ctx
	}
	logger := pslog.Ctx(ctx)
	return logx.CopyContextFields(pslog.ContextWithLogger(sess.ctx, logger), ctx)
}

func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) lookupSession(r *http.Request) schema.SessionID {
	if s == nil || r == nil {
		return ""
	}
	token := s.sessionToken(r)
	if token == "" {
		return ""
	}
	s.sessions.mu.Lock()
	entry, ok := s.sessions.items[token]
	s.sessions.mu.Unlock()
	if !ok {
		return ""
	}
	return entry.id
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidSession),
		errors.Is(err, schema.ErrInvalidKey),
		errors.Is(err, schema.ErrInvalidSuggestion),
		errors.Is(err, schema.ErrInvalidPrompt):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrEditorClosed):
		return http.StatusGone
	case errors.Is(err, schema.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, schema.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func decodeOptionalJSON(body io.Reader, target any) error {
	if body == nil {
		return nil
	}
	if err := decodeJSON(body, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
