package schema

// NoSelection marks a suggestion list without an active candidate.
const NoSelection = -1

// NotBrowsing marks a history cursor that points past the newest entry.
const NotBrowsing = -1

// SuggestionSnapshot is the renderer view of a suggestion session.
type SuggestionSnapshot struct {
	Prefix     string   `json:"prefix"`
	Candidates []string `json:"candidates"`
	Selected   int      `json:"selected"`
	Pending    bool     `json:"pending"`
}

// EditorSnapshot is everything a renderer needs after an event.
type EditorSnapshot struct {
	SessionID     SessionID          `json:"session_id"`
	Prompt        string             `json:"prompt"`
	Input         string             `json:"input"`
	Cursor        int                `json:"cursor"`
	HistoryCursor int                `json:"history_cursor"`
	HistoryLen    int                `json:"history_len"`
	Transcript    []TranscriptLine   `json:"transcript"`
	Suggestions   SuggestionSnapshot `json:"suggestions"`
}

// PromptLine renders the echoed form of an input line.
func PromptLine(prompt, text string) string {
	return prompt + ">" + text
}
