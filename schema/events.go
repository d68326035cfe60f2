package schema

// StateReason describes what changed an editor.
type StateReason string

const (
	ReasonOpened      StateReason = "opened"
	ReasonKey         StateReason = "key"
	ReasonInput       StateReason = "input"
	ReasonSubmit      StateReason = "submit"
	ReasonExecute     StateReason = "execute"
	ReasonSuggestions StateReason = "suggestions"
	ReasonPrompt      StateReason = "prompt"
	ReasonClosed      StateReason = "closed"
)

// StateEvent is emitted whenever an editor's observable state changes.
type StateEvent struct {
	SessionID SessionID
	Reason    StateReason
	State     EditorSnapshot
}
