package schema

import (
	"strings"
	"time"
	"unicode"
)

// AppVersion is the version string shown by the banner and ver.
const AppVersion = "1.0.0.2024"

// DefaultPromptName is the prompt label used when none is configured.
const DefaultPromptName = "TermAI"

// DefaultDebounceInterval is the quiet period before a suggestion lookup.
const DefaultDebounceInterval = 300 * time.Millisecond

// DefaultLookupTimeout bounds a single suggestion lookup.
const DefaultLookupTimeout = 5 * time.Second

// DefaultMaxSessions caps concurrently open editors.
const DefaultMaxSessions = 1024

const maxPromptNameLen = 64

// EditorConfig defines editor behavior shared by every session.
type EditorConfig struct {
	PromptName       string
	DebounceInterval time.Duration
	LookupTimeout    time.Duration
	// HistoryMax bounds history length; 0 keeps every entry.
	HistoryMax int
	// TranscriptMaxLines bounds transcript length; 0 keeps every line.
	TranscriptMaxLines int
	// RestoreDraft restores the text typed before history recall when
	// recall runs past the newest entry. When false the input is cleared.
	RestoreDraft bool
	MaxSessions  int
	// DisableAuditLogging disables audit trail debug logs for commands.
	DisableAuditLogging bool
}

// NormalizeEditorConfig applies defaults and validates the config.
func NormalizeEditorConfig(cfg EditorConfig) (EditorConfig, error) {
	if strings.TrimSpace(cfg.PromptName) == "" {
		cfg.PromptName = DefaultPromptName
	}
	name, err := NormalizePromptName(cfg.PromptName)
	if err != nil {
		return EditorConfig{}, err
	}
	cfg.PromptName = name
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.HistoryMax < 0 {
		cfg.HistoryMax = 0
	}
	if cfg.TranscriptMaxLines < 0 {
		cfg.TranscriptMaxLines = 0
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return cfg, nil
}

// NormalizePromptName trims and validates a prompt label.
// Control characters and '>' are rejected since the renderer appends '>'.
func NormalizePromptName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len([]rune(trimmed)) > maxPromptNameLen {
		return "", ErrInvalidPrompt
	}
	for _, r := range trimmed {
		if r == '>' || unicode.IsControl(r) {
			return "", ErrInvalidPrompt
		}
	}
	return trimmed, nil
}
