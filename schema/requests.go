package schema

// OpenSessionRequest opens a new editor.
type OpenSessionRequest struct {
	// PromptName overrides the configured prompt label when set.
	PromptName string
}

// OpenSessionResponse reports the opened editor.
type OpenSessionResponse struct {
	SessionID SessionID
	State     EditorSnapshot
}

// CloseSessionRequest closes an editor.
type CloseSessionRequest struct {
	SessionID SessionID
}

// CloseSessionResponse reports a closed editor.
type CloseSessionResponse struct{}

// SendKeyRequest delivers one key event.
type SendKeyRequest struct {
	SessionID SessionID
	Key       KeyEvent
}

// SendKeyResponse reports the state after the key.
type SendKeyResponse struct {
	State EditorSnapshot
}

// SetInputRequest replaces the current input text.
type SetInputRequest struct {
	SessionID SessionID
	Text      string
}

// SetInputResponse reports the state after the replacement.
type SetInputResponse struct {
	State EditorSnapshot
}

// PickSuggestionRequest accepts the candidate at Index.
type PickSuggestionRequest struct {
	SessionID SessionID
	Index     int
}

// PickSuggestionResponse reports the state after acceptance.
type PickSuggestionResponse struct {
	State EditorSnapshot
}

// ExecuteRequest submits a command from outside the input line.
type ExecuteRequest struct {
	SessionID SessionID
	Command   string
}

// ExecuteResponse reports the state after execution.
type ExecuteResponse struct {
	State EditorSnapshot
}

// SetPromptRequest changes the prompt label.
type SetPromptRequest struct {
	SessionID  SessionID
	PromptName string
}

// SetPromptResponse reports the state after the change.
type SetPromptResponse struct {
	State EditorSnapshot
}

// GetStateRequest fetches the current state.
type GetStateRequest struct {
	SessionID SessionID
}

// GetStateResponse reports the current state.
type GetStateResponse struct {
	State EditorSnapshot
}
