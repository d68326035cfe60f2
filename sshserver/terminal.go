package sshserver

import (
	"context"
	"errors"
	"io"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// WindowSize is a terminal resize notification.
type WindowSize struct {
	Width  int
	Height int
}

// terminalSession drives one editor over a raw terminal stream.
type terminalSession struct {
	rw        io.ReadWriter
	service   core.Service
	sessionID schema.SessionID
	screen    *screen
	theme     tuiTheme
	events    <-chan schema.StateEvent
	ctx       context.Context

	width  int
	height int

	state  schema.EditorSnapshot
	scroll int
	dirty  bool
}

func newTerminalSession(rw io.ReadWriter, service core.Service, state schema.EditorSnapshot, events <-chan schema.StateEvent) *terminalSession {
	return &terminalSession{
		rw:        rw,
		service:   service,
		sessionID: state.SessionID,
		screen:    newScreen(rw),
		theme:     defaultTheme,
		events:    events,
		state:     state,
		ctx:       context.Background(),
	}
}

func (t *terminalSession) log() pslog.Logger {
	return pslog.Ctx(t.ctx)
}

func (t *terminalSession) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	t.width = width
	t.height = height
}

// Run processes keys, resizes and editor events until the peer hangs up,
// asks to leave, or ctx ends.
func (t *terminalSession) Run(ctx context.Context, winCh <-chan WindowSize) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx = ctx
	if t.width == 0 {
		t.SetSize(0, 0)
	}
	t.screen.EnterAltScreen()
	defer t.screen.ExitAltScreen()
	t.render()
	t.log().Info("tui session start", "width", t.width, "height", t.height)

	keys := make(chan key, 16)
	go readKeys(t.rw, keys)

	events := t.events
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if t.handleKey(k) {
				return nil
			}
		case win, ok := <-winCh:
			if !ok {
				winCh = nil
				break
			}
			t.SetSize(win.Width, win.Height)
			t.screen.Invalidate()
			t.dirty = true
			t.log().Debug("tui resize", "width", t.width, "height", t.height)
		case ev, ok := <-events:
			if !ok {
				events = nil
				break
			}
			if ev.Reason == schema.ReasonClosed {
				t.log().Info("tui session closed by service")
				return nil
			}
			t.refresh()
		}
		if t.dirty {
			t.render()
			t.dirty = false
		}
	}
}

// handleKey applies one key and reports whether the session should end.
func (t *terminalSession) handleKey(k key) bool {
	switch k.kind {
	case keyCtrlD:
		if t.state.Input == "" {
			return true
		}
		return false
	case keyCtrlC:
		if t.state.Input == "" {
			return true
		}
		t.send(schema.KeyEvent{Kind: schema.KeyClear})
	case keyRune:
		t.send(schema.KeyEvent{Kind: schema.KeyRune, Rune: k.r})
	case keyEnter:
		t.scroll = 0
		t.send(schema.KeyEvent{Kind: schema.KeyEnter})
	case keyBackspace:
		t.send(schema.KeyEvent{Kind: schema.KeyBackspace})
	case keyTab:
		t.send(schema.KeyEvent{Kind: schema.KeyTab})
	case keyEscape:
		t.send(schema.KeyEvent{Kind: schema.KeyEscape})
	case keyUp:
		t.send(schema.KeyEvent{Kind: schema.KeyUp})
	case keyDown:
		t.send(schema.KeyEvent{Kind: schema.KeyDown})
	case keyCtrlU:
		t.send(schema.KeyEvent{Kind: schema.KeyClear})
	case keyCtrlW:
		t.send(schema.KeyEvent{Kind: schema.KeyDeleteWord})
	case keyCtrlL:
		// Same as typing cls: it lands in history and the transcript resets.
		t.scroll = 0
		t.execute("cls")
	case keyPageUp:
		t.scrollBy(t.pageSize())
	case keyPageDown:
		t.scrollBy(-t.pageSize())
	case keyHome:
		t.scroll = len(t.state.Transcript)
		t.dirty = true
	case keyEnd:
		t.scroll = 0
		t.dirty = true
	}
	return false
}

func (t *terminalSession) send(ev schema.KeyEvent) {
	resp, err := t.service.SendKey(t.ctx, schema.SendKeyRequest{SessionID: t.sessionID, Key: ev})
	if err != nil {
		t.handleError("tui key failed", err)
		return
	}
	t.apply(resp.State)
}

func (t *terminalSession) execute(line string) {
	resp, err := t.service.Execute(t.ctx, schema.ExecuteRequest{SessionID: t.sessionID, Command: line})
	if err != nil {
		t.handleError("tui execute failed", err)
		return
	}
	t.apply(resp.State)
}

// refresh pulls the latest state after an asynchronous editor event.
func (t *terminalSession) refresh() {
	resp, err := t.service.GetState(t.ctx, schema.GetStateRequest{SessionID: t.sessionID})
	if err != nil {
		t.handleError("tui refresh failed", err)
		return
	}
	t.apply(resp.State)
}

func (t *terminalSession) apply(state schema.EditorSnapshot) {
	t.state = state
	t.dirty = true
}

func (t *terminalSession) handleError(msg string, err error) {
	if errors.Is(err, schema.ErrInvalidKey) {
		t.log().Debug(msg, "err", err)
		return
	}
	t.log().Warn(msg, "err", err)
}

func (t *terminalSession) scrollBy(delta int) {
	t.scroll += delta
	if t.scroll < 0 {
		t.scroll = 0
	}
	t.dirty = true
}

func (t *terminalSession) pageSize() int {
	size := t.height / 2
	if size < 1 {
		size = 1
	}
	return size
}

// frame lays out the viewport, input line and suggestion rows.
func (t *terminalSession) frame() ([]string, int, int) {
	width := t.width
	height := t.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	inputLines, cursorRow, cursorCol := renderInputLines(renderPrompt(t.state.Prompt, t.theme), sanitizeOutputLine(t.state.Input), width)
	suggestionRows := renderSuggestions(t.state.Suggestions, width, t.theme)
	viewHeight := height - len(inputLines) - len(suggestionRows)
	if viewHeight < 0 {
		viewHeight = 0
	}
	viewport, view := renderViewport(t.state.Transcript, width, viewHeight, t.scroll, t.theme)
	t.scroll = view.ScrollOffset

	lines := make([]string, 0, height)
	lines = append(lines, viewport...)
	lines = append(lines, inputLines...)
	lines = append(lines, suggestionRows...)
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines, len(viewport) + cursorRow, cursorCol
}

func (t *terminalSession) render() {
	lines, row, col := t.frame()
	if err := t.screen.Render(lines, row, col); err != nil {
		t.log().Warn("tui render failed", "err", err)
	}
}
