package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	fresh := NewSessionID()
	cases := []struct {
		name  string
		id    SessionID
		valid bool
	}{
		{"fresh", fresh, true},
		{"empty", "", false},
		{"padded", " " + fresh, false},
		{"uppercase", SessionID(strings.ToUpper(string(fresh))), false},
		{"urn", SessionID("urn:uuid:" + string(fresh)), false},
		{"garbage", "not-a-session", false},
	}
	for _, tc := range cases {
		err := ValidateSessionID(tc.id)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("case %q expected ErrInvalidSession, got %v", tc.name, err)
		}
	}
}

func TestNormalizeKeyKind(t *testing.T) {
	cases := map[string]KeyKind{
		"Enter":       KeyEnter,
		"ArrowUp":     KeyUp,
		"arrowdown":   KeyDown,
		" tab ":       KeyTab,
		"esc":         KeyEscape,
		"delete-word": KeyDeleteWord,
		"paste":       KeyText,
	}
	for in, want := range cases {
		got, err := NormalizeKeyKind(in)
		if err != nil {
			t.Fatalf("NormalizeKeyKind(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizeKeyKind(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := NormalizeKeyKind("f13"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestNormalizePromptName(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"TermAI", "TermAI", true},
		{"  C:\\Users\\guest  ", "C:\\Users\\guest", true},
		{"", "", false},
		{"bad>prompt", "", false},
		{"bell\a", "", false},
		{strings.Repeat("x", 65), "", false},
	}
	for _, tc := range cases {
		got, err := NormalizePromptName(tc.in)
		if tc.valid {
			if err != nil || got != tc.want {
				t.Fatalf("NormalizePromptName(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPrompt) {
			t.Fatalf("NormalizePromptName(%q) expected ErrInvalidPrompt, got %v", tc.in, err)
		}
	}
}

func TestNormalizeEditorConfigDefaults(t *testing.T) {
	cfg, err := NormalizeEditorConfig(EditorConfig{HistoryMax: -3})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.PromptName != DefaultPromptName {
		t.Fatalf("expected default prompt, got %q", cfg.PromptName)
	}
	if cfg.DebounceInterval != DefaultDebounceInterval {
		t.Fatalf("expected default debounce, got %v", cfg.DebounceInterval)
	}
	if cfg.LookupTimeout != DefaultLookupTimeout {
		t.Fatalf("expected default lookup timeout, got %v", cfg.LookupTimeout)
	}
	if cfg.HistoryMax != 0 {
		t.Fatalf("expected unbounded history, got %d", cfg.HistoryMax)
	}
	if cfg.MaxSessions != DefaultMaxSessions {
		t.Fatalf("expected default max sessions, got %d", cfg.MaxSessions)
	}
}
