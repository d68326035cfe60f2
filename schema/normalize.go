package schema

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ValidateSessionID ensures id is a canonical UUID string with no normalization.
func ValidateSessionID(id SessionID) error {
	raw := string(id)
	if raw == "" || strings.TrimSpace(raw) != raw {
		return ErrInvalidSession
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return ErrInvalidSession
	}
	if parsed.String() != raw {
		return ErrInvalidSession
	}
	return nil
}

// NormalizeKeyKind maps transport spellings onto a KeyKind.
func NormalizeKeyKind(value string) (KeyKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "rune", "char":
		return KeyRune, nil
	case "text", "paste":
		return KeyText, nil
	case "backspace":
		return KeyBackspace, nil
	case "enter", "return":
		return KeyEnter, nil
	case "up", "arrowup":
		return KeyUp, nil
	case "down", "arrowdown":
		return KeyDown, nil
	case "tab":
		return KeyTab, nil
	case "escape", "esc":
		return KeyEscape, nil
	case "clear":
		return KeyClear, nil
	case "delete_word":
		return KeyDeleteWord, nil
	default:
		return "", ErrInvalidKey
	}
}
