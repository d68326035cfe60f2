package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"pkt.systems/cmdweb/internal/logx"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// arrowMode names which component consumes an arrow key.
type arrowMode int

const (
	arrowSuggestions arrowMode = iota
	arrowHistory
)

// arrowState is the input to the arrow precedence table.
type arrowState struct {
	hasCandidates bool
	browsing      bool
}

// arrowTable resolves ArrowUp/ArrowDown. A listed suggestion always wins
// over history, whether or not history is being browsed.
var arrowTable = map[arrowState]arrowMode{
	{hasCandidates: true, browsing: false}:  arrowSuggestions,
	{hasCandidates: true, browsing: true}:   arrowSuggestions,
	{hasCandidates: false, browsing: false}: arrowHistory,
	{hasCandidates: false, browsing: true}:  arrowHistory,
}

// Editor is the line editor of one terminal session. It owns the current
// input, the command history, the suggestion session and the transcript.
// All methods are safe for concurrent use; lookup results arrive on their
// own goroutines.
type Editor struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	id     schema.SessionID
	cfg    schema.EditorConfig
	prompt string
	input  string
	// draft is the input that was on the line when history recall began.
	draft string

	history     *History
	suggestions *SuggestionSession
	transcript  *Transcript
	debounce    *Debouncer[SuggestionRequest]

	exec     Executor
	provider Provider
	banner   BannerFunc
	sink     EventSink
	logger   pslog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	lookups sync.WaitGroup
	closed  bool
}

// NewEditor constructs an editor and seeds its transcript with the banner.
func NewEditor(cfg schema.EditorConfig, deps EditorDeps) (*Editor, error) {
	normalized, err := schema.NormalizeEditorConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Executor == nil {
		return nil, errors.New("editor executor is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if deps.SessionID != "" {
		logger = logger.With("session", deps.SessionID)
	}
	ctx := logx.ContextWithSessionLogger(context.Background(), logger, deps.SessionID)
	ctx, cancel := context.WithCancel(ctx)
	e := &Editor{
		id:          deps.SessionID,
		cfg:         cfg,
		prompt:      cfg.PromptName,
		history:     NewHistory(cfg.HistoryMax),
		suggestions: NewSuggestionSession(),
		exec:        deps.Executor,
		provider:    deps.Provider,
		banner:      deps.Banner,
		sink:        deps.Sink,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	e.transcript = NewTranscript(cfg.TranscriptMaxLines, e.bannerLines())
	e.debounce = newDebouncer(cfg.DebounceInterval, e.lookup, deps.after)
	return e, nil
}

// ID returns the session id the editor was created for.
func (e *Editor) ID() schema.SessionID {
	return e.id
}

// HandleKey applies one key event.
func (e *Editor) HandleKey(ctx context.Context, key schema.KeyEvent) (schema.EditorSnapshot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrEditorClosed
	}
	reason := schema.ReasonKey
	changed := false
	switch key.Kind {
	case schema.KeyRune:
		r := key.Rune
		if r == 0 {
			r, _ = utf8.DecodeRuneInString(key.Text)
		}
		if r == 0 || r == utf8.RuneError || unicode.IsControl(r) {
			e.mu.Unlock()
			return schema.EditorSnapshot{}, schema.ErrInvalidKey
		}
		changed = e.setInputLocked(e.input + string(r))
	case schema.KeyText:
		changed = e.setInputLocked(e.input + sanitizeInput(key.Text))
	case schema.KeyBackspace:
		if e.input != "" {
			_, size := utf8.DecodeLastRuneInString(e.input)
			changed = e.setInputLocked(e.input[:len(e.input)-size])
		}
	case schema.KeyDeleteWord:
		changed = e.setInputLocked(deleteLastWord(e.input))
	case schema.KeyClear:
		changed = e.setInputLocked("")
	case schema.KeyEnter:
		e.submitInputLocked(ctx)
		reason = schema.ReasonSubmit
		changed = true
	case schema.KeyUp:
		changed = e.arrowLocked(Backward)
	case schema.KeyDown:
		changed = e.arrowLocked(Forward)
	case schema.KeyTab:
		changed = e.tabLocked()
	case schema.KeyEscape:
		if e.suggestions.HasCandidates() || e.suggestions.Pending() {
			e.clearSuggestionsLocked()
			changed = true
		}
	default:
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrInvalidKey
	}
	if !changed {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}
	return e.unlockAndEmit(reason), nil
}

// SetInput replaces the current input as if it had been typed.
func (e *Editor) SetInput(text string) (schema.EditorSnapshot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrEditorClosed
	}
	if !e.setInputLocked(sanitizeInput(text)) {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}
	return e.unlockAndEmit(schema.ReasonInput), nil
}

// Pick accepts the listed candidate at index, the pointer equivalent of Tab.
func (e *Editor) Pick(index int) (schema.EditorSnapshot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrEditorClosed
	}
	text, ok := e.suggestions.Accept(index)
	if index < 0 || !ok {
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrInvalidSuggestion
	}
	e.acceptLocked(text)
	return e.unlockAndEmit(schema.ReasonInput), nil
}

// Submit finalizes the current input, the same as Enter.
func (e *Editor) Submit(ctx context.Context) (schema.EditorSnapshot, error) {
	return e.HandleKey(ctx, schema.KeyEvent{Kind: schema.KeyEnter})
}

// Execute submits line from outside the input field. The current input,
// history cursor and suggestions are left alone.
func (e *Editor) Execute(ctx context.Context, line string) (schema.EditorSnapshot, error) {
	if line == "" {
		return schema.EditorSnapshot{}, schema.ErrInvalidRequest
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrEditorClosed
	}
	e.submitLocked(ctx, sanitizeInput(line))
	return e.unlockAndEmit(schema.ReasonExecute), nil
}

// SetPrompt changes the prompt label and rebuilds the banner.
func (e *Editor) SetPrompt(name string) (schema.EditorSnapshot, error) {
	normalized, err := schema.NormalizePromptName(name)
	if err != nil {
		return schema.EditorSnapshot{}, err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return schema.EditorSnapshot{}, schema.ErrEditorClosed
	}
	e.prompt = normalized
	e.transcript.Reset(e.bannerLines())
	e.logger.Debug("editor prompt changed", "prompt", normalized)
	return e.unlockAndEmit(schema.ReasonPrompt), nil
}

// Snapshot returns the current observable state.
func (e *Editor) Snapshot() schema.EditorSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Close stops pending lookups and rejects further events.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.debounce.Close()
	e.cancel()
	snap := e.unlockAndEmit(schema.ReasonClosed)
	e.lookups.Wait()
	e.logger.Debug("editor closed", "history", snap.HistoryLen)
}

func (e *Editor) setInputLocked(text string) bool {
	if text == e.input && !e.history.Browsing() {
		return false
	}
	e.input = text
	e.history.Reset()
	e.draft = ""
	e.requestSuggestionsLocked()
	return true
}

func (e *Editor) requestSuggestionsLocked() {
	if e.provider == nil {
		e.suggestions.Clear()
		return
	}
	req, ok := e.suggestions.Begin(e.input)
	if !ok {
		e.debounce.Cancel()
		return
	}
	e.debounce.Call(req)
}

func (e *Editor) clearSuggestionsLocked() {
	e.debounce.Cancel()
	e.suggestions.Clear()
}

func (e *Editor) arrowLocked(dir Direction) bool {
	state := arrowState{
		hasCandidates: e.suggestions.HasCandidates(),
		browsing:      e.history.Browsing(),
	}
	switch arrowTable[state] {
	case arrowSuggestions:
		return e.suggestions.Move(dir)
	default:
		return e.recallLocked(dir)
	}
}

func (e *Editor) recallLocked(dir Direction) bool {
	if dir == Backward {
		wasBrowsing := e.history.Browsing()
		entry, ok := e.history.RecallPrevious()
		if !ok {
			return false
		}
		if !wasBrowsing {
			e.draft = e.input
		}
		e.input = entry
		e.refreshSuggestionsLocked()
		return true
	}
	entry, result := e.history.RecallNext()
	switch result {
	case RecallMoved:
		e.input = entry
	case RecallExhausted:
		e.input = ""
		if e.cfg.RestoreDraft {
			e.input = e.draft
		}
		e.draft = ""
	default:
		return false
	}
	e.refreshSuggestionsLocked()
	return true
}

// refreshSuggestionsLocked drops the current candidates and schedules a
// lookup for the recalled input. The history cursor is left where it is.
func (e *Editor) refreshSuggestionsLocked() {
	e.suggestions.Clear()
	e.requestSuggestionsLocked()
}

func (e *Editor) tabLocked() bool {
	if !e.suggestions.HasCandidates() {
		return false
	}
	index := e.suggestions.Selected()
	if index == schema.NoSelection {
		index = 0
	}
	text, ok := e.suggestions.Accept(index)
	if !ok {
		return false
	}
	e.acceptLocked(text)
	return true
}

func (e *Editor) acceptLocked(text string) {
	e.input = text + " "
	e.history.Reset()
	e.draft = ""
	e.clearSuggestionsLocked()
}

func (e *Editor) submitInputLocked(ctx context.Context) {
	e.submitLocked(ctx, e.input)
	e.input = ""
	e.draft = ""
	e.history.Reset()
	e.clearSuggestionsLocked()
}

// submitLocked echoes raw and, unless it is blank, dispatches it and records
// it in history.
func (e *Editor) submitLocked(ctx context.Context, raw string) {
	if ctx == nil {
		ctx = e.ctx
	}
	e.transcript.Append(schema.LineInput, schema.PromptLine(e.prompt, raw))
	line := strings.TrimSpace(raw)
	if line == "" {
		e.logger.Debug("editor submit empty")
		return
	}
	result := e.exec.Execute(ctx, schema.CommandRequest{Line: line, Prompt: e.prompt})
	if result.Clear {
		e.transcript.Reset(e.bannerLines())
	}
	e.transcript.AppendOutputs(result.Lines)
	added := e.history.Append(line)
	e.logger.Debug("editor submit", "lines", len(result.Lines), "clear", result.Clear, "history_added", added)
}

// lookup runs on the debouncer's timer goroutine.
func (e *Editor) lookup(req SuggestionRequest) {
	e.mu.Lock()
	if e.closed || !e.suggestions.Current(req) {
		e.mu.Unlock()
		return
	}
	e.lookups.Add(1)
	e.mu.Unlock()
	defer e.lookups.Done()

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.LookupTimeout)
	candidates, err := e.provider.Lookup(ctx, req.Prefix)
	cancel()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	var applied bool
	if err != nil {
		e.logger.Debug("editor suggest lookup failed", "prefix", req.Prefix, "err", err)
		applied = e.suggestions.Fail(req)
	} else {
		applied = e.suggestions.Apply(req, candidates)
	}
	if !applied {
		e.logger.Debug("editor suggest result discarded", "prefix", req.Prefix)
		e.mu.Unlock()
		return
	}
	e.unlockAndEmit(schema.ReasonSuggestions)
}

// unlockAndEmit snapshots the state, releases e.mu and delivers the event.
// emitMu is taken before e.mu is released so events leave in mutation order.
// Sinks must not call back into the editor.
func (e *Editor) unlockAndEmit(reason schema.StateReason) schema.EditorSnapshot {
	snap := e.snapshotLocked()
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()
	if e.sink != nil {
		e.sink.OnState(schema.StateEvent{SessionID: e.id, Reason: reason, State: snap})
	}
	return snap
}

func (e *Editor) snapshotLocked() schema.EditorSnapshot {
	return schema.EditorSnapshot{
		SessionID:     e.id,
		Prompt:        e.prompt,
		Input:         e.input,
		Cursor:        utf8.RuneCountInString(e.input),
		HistoryCursor: e.history.Cursor(),
		HistoryLen:    e.history.Len(),
		Transcript:    e.transcript.Lines(),
		Suggestions:   e.suggestions.Snapshot(),
	}
}

func (e *Editor) bannerLines() []schema.OutputLine {
	if e.banner == nil {
		return nil
	}
	return e.banner(e.prompt)
}

// sanitizeInput drops control characters; the input line is single-line.
func sanitizeInput(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

func deleteLastWord(text string) string {
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	idx := strings.LastIndexFunc(trimmed, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return trimmed[:idx+1]
}
