package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/cmdweb/internal/logx"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// service implements Service over a registry of editors.
type service struct {
	cfg     schema.EditorConfig
	deps    ServiceDeps
	logger  pslog.Logger
	mu      sync.Mutex
	editors map[schema.SessionID]*Editor
}

// NewService constructs the session service.
func NewService(cfg schema.EditorConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeEditorConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Executor == nil {
		return nil, errors.New("service executor is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:     normalized,
		deps:    deps,
		logger:  logger,
		editors: make(map[schema.SessionID]*Editor),
	}, nil
}

func (s *service) OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error) {
	if ctx == nil {
		return schema.OpenSessionResponse{}, errors.New("missing context")
	}
	cfg := s.cfg
	if req.PromptName != "" {
		name, err := schema.NormalizePromptName(req.PromptName)
		if err != nil {
			return schema.OpenSessionResponse{}, err
		}
		cfg.PromptName = name
	}

	s.mu.Lock()
	if len(s.editors) >= cfg.MaxSessions {
		s.mu.Unlock()
		s.logger.Warn("service session limit reached", "max_sessions", cfg.MaxSessions)
		return schema.OpenSessionResponse{}, schema.ErrTooManySessions
	}
	id := schema.NewSessionID()
	editor, err := NewEditor(cfg, EditorDeps{
		SessionID: id,
		Executor:  s.deps.Executor,
		Provider:  s.deps.Provider,
		Banner:    s.deps.Banner,
		Sink:      s.deps.EventSink,
		Logger:    s.logger,
		after:     s.deps.after,
	})
	if err != nil {
		s.mu.Unlock()
		return schema.OpenSessionResponse{}, err
	}
	s.editors[id] = editor
	count := len(s.editors)
	s.mu.Unlock()

	state := editor.Snapshot()
	if s.deps.EventSink != nil {
		s.deps.EventSink.OnState(schema.StateEvent{SessionID: id, Reason: schema.ReasonOpened, State: state})
	}
	logx.WithSession(ctx, id).Info("service session opened", "prompt", cfg.PromptName, "sessions", count)
	return schema.OpenSessionResponse{SessionID: id, State: state}, nil
}

func (s *service) CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error) {
	if err := schema.ValidateSessionID(req.SessionID); err != nil {
		return schema.CloseSessionResponse{}, err
	}
	s.mu.Lock()
	editor, ok := s.editors[req.SessionID]
	if ok {
		delete(s.editors, req.SessionID)
	}
	s.mu.Unlock()
	if !ok {
		return schema.CloseSessionResponse{}, schema.ErrSessionNotFound
	}
	editor.Close()
	logx.WithSession(ctx, req.SessionID).Info("service session closed")
	return schema.CloseSessionResponse{}, nil
}

func (s *service) SendKey(ctx context.Context, req schema.SendKeyRequest) (schema.SendKeyResponse, error) {
	editor, err := s.editor(req.SessionID)
	if err != nil {
		return schema.SendKeyResponse{}, err
	}
	state, err := editor.HandleKey(ctx, req.Key)
	if err != nil {
		return schema.SendKeyResponse{}, err
	}
	return schema.SendKeyResponse{State: state}, nil
}

func (s *service) SetInput(ctx context.Context, req schema.SetInputRequest) (schema.SetInputResponse, error) {
	editor, err := s.editor(req.SessionID)
	if err != nil {
		return schema.SetInputResponse{}, err
	}
	state, err := editor.SetInput(req.Text)
	if err != nil {
		return schema.SetInputResponse{}, err
	}
	return schema.SetInputResponse{State: state}, nil
}

func (s *service) PickSuggestion(ctx context.Context, req schema.PickSuggestionRequest) (schema.PickSuggestionResponse, error) {
	editor, err := s.editor(req.SessionID)
	if err != nil {
		return schema.PickSuggestionResponse{}, err
	}
	state, err := editor.Pick(req.Index)
	if err != nil {
		return schema.PickSuggestionResponse{}, err
	}
	return schema.PickSuggestionResponse{State: state}, nil
}

func (s *service) Execute(ctx context.Context, req schema.ExecuteRequest) (schema.ExecuteResponse, error) {
	editor, err := s.editor(req.SessionID)
	if err != nil {
		return schema.ExecuteResponse{}, err
	}
	state, err := editor.Execute(logx.ContextWithSession(ctx, req.SessionID), req.Command)
	if err != nil {
		return schema.ExecuteResponse{}, err
	}
	return schema.ExecuteResponse{State: state}, nil
}

func (s *service) SetPrompt(ctx context.Context, req schema.SetPromptRequest) (schema.SetPromptResponse, error) {
	editor, err := s.editor(req.SessionID)
	if err != nil {
		return schema.SetPromptResponse{}, err
	}
	state, err := editor.SetPrompt(req.PromptName)
	if err != nil {
		return schema.SetPromptResponse{}, err
	}
	return schema.SetPromptResponse{State: state}, nil
}

func (s *service) GetState(ctx context.Context, req schema.GetStateRequest) (schema.GetStateResponse, error) {
	editor, err := s.editor(req.SessionID)
	if err != nil {
		return schema.GetStateResponse{}, err
	}
	return schema.GetStateResponse{State: editor.Snapshot()}, nil
}

func (s *service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	editors := make([]*Editor, 0, len(s.editors))
	for id, editor := range s.editors {
		editors = append(editors, editor)
		delete(s.editors, id)
	}
	s.mu.Unlock()
	for _, editor := range editors {
		editor.Close()
	}
	if len(editors) > 0 {
		pslog.Ctx(ctx).Info("service sessions closed", "count", len(editors))
	}
	return nil
}

func (s *service) editor(id schema.SessionID) (*Editor, error) {
	if err := schema.ValidateSessionID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	editor, ok := s.editors[id]
	if !ok {
		return nil, schema.ErrSessionNotFound
	}
	return editor, nil
}
