package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidSession indicates a malformed session identifier.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionNotFound indicates the session does not exist or was closed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions indicates the session limit was reached.
	ErrTooManySessions = errors.New("too many sessions")
	// ErrInvalidKey indicates an unsupported key event.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidSuggestion indicates a suggestion index outside the list.
	ErrInvalidSuggestion = errors.New("invalid suggestion")
	// ErrInvalidPrompt indicates an unusable prompt label.
	ErrInvalidPrompt = errors.New("invalid prompt")
	// ErrEditorClosed indicates the editor no longer accepts events.
	ErrEditorClosed = errors.New("editor closed")
	// ErrProviderUnavailable indicates no suggestion provider answered.
	ErrProviderUnavailable = errors.New("suggestion provider unavailable")
	// ErrRateLimited indicates a lookup was rejected by the rate limiter.
	ErrRateLimited = errors.New("suggestion lookup rate limited")
)
