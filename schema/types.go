package schema

// SessionID identifies an editor session.
type SessionID string

// LineID identifies a transcript line within one transcript generation.
type LineID string

// LineKind classifies a transcript line.
type LineKind string

const (
	// LineInput is an echoed prompt line.
	LineInput LineKind = "input"
	// LineOutput is regular command output.
	LineOutput LineKind = "output"
	// LineError is a command diagnostic.
	LineError LineKind = "error"
	// LineInfo is banner or informational text.
	LineInfo LineKind = "info"
)

// Valid reports whether k is a known line kind.
func (k LineKind) Valid() bool {
	switch k {
	case LineInput, LineOutput, LineError, LineInfo:
		return true
	default:
		return false
	}
}

// TranscriptLine is an immutable line of the transcript.
type TranscriptLine struct {
	ID   LineID   `json:"id"`
	Text string   `json:"text"`
	Kind LineKind `json:"kind"`
}

// OutputLine is a line produced by the command dispatcher.
type OutputLine struct {
	Text string   `json:"text"`
	Kind LineKind `json:"kind"`
}

// Output returns an output-kind line.
func Output(text string) OutputLine {
	return OutputLine{Text: text, Kind: LineOutput}
}

// Info returns an info-kind line.
func Info(text string) OutputLine {
	return OutputLine{Text: text, Kind: LineInfo}
}

// Error returns an error-kind line.
func Error(text string) OutputLine {
	return OutputLine{Text: text, Kind: LineError}
}

// CommandRequest is passed to the command dispatcher.
type CommandRequest struct {
	// Line is the trimmed, non-empty submitted text.
	Line string
	// Prompt is the prompt label active at submission time.
	Prompt string
}

// CommandResult is the dispatcher's answer for one submitted line.
type CommandResult struct {
	Lines []OutputLine
	// Clear asks the editor to replace the transcript with a fresh banner
	// before Lines are appended.
	Clear bool
}

// KeyKind identifies an editor key event.
type KeyKind string

const (
	KeyRune       KeyKind = "rune"
	KeyText       KeyKind = "text"
	KeyBackspace  KeyKind = "backspace"
	KeyEnter      KeyKind = "enter"
	KeyUp         KeyKind = "up"
	KeyDown       KeyKind = "down"
	KeyTab        KeyKind = "tab"
	KeyEscape     KeyKind = "escape"
	KeyClear      KeyKind = "clear"
	KeyDeleteWord KeyKind = "delete_word"
)

// KeyEvent is a single key press delivered to an editor.
type KeyEvent struct {
	Kind KeyKind `json:"key"`
	Rune rune    `json:"-"`
	Text string  `json:"text,omitempty"`
}
