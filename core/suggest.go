package core

import (
	"strings"
	"unicode"

	"pkt.systems/cmdweb/schema"
)

// Direction is the way an arrow key moves through candidates.
type Direction int

const (
	// Backward moves toward the top of the list (ArrowUp).
	Backward Direction = -1
	// Forward moves toward the bottom of the list (ArrowDown).
	Forward Direction = 1
)

// SuggestionRequest tags one lookup with the prefix and token it was issued
// for. A result is applied only while both still match the session.
type SuggestionRequest struct {
	Prefix string
	Token  uint64
}

// SuggestionSession holds the candidate list for the current prefix.
type SuggestionSession struct {
	prefix     string
	candidates []string
	selected   int
	pending    bool
	token      uint64
}

// NewSuggestionSession returns an empty session.
func NewSuggestionSession() *SuggestionSession {
	return &SuggestionSession{selected: schema.NoSelection}
}

// Begin starts a lookup for prefix. A blank prefix or one containing
// whitespace clears the session and returns false.
func (s *SuggestionSession) Begin(prefix string) (SuggestionRequest, bool) {
	if prefix == "" || strings.IndexFunc(prefix, unicode.IsSpace) >= 0 {
		s.Clear()
		return SuggestionRequest{}, false
	}
	s.token++
	s.prefix = prefix
	s.pending = true
	return SuggestionRequest{Prefix: prefix, Token: s.token}, true
}

// Current reports whether req is still the outstanding request.
func (s *SuggestionSession) Current(req SuggestionRequest) bool {
	return s.pending && req.Token == s.token && req.Prefix == s.prefix
}

// Apply installs candidates for req. Stale requests are ignored.
func (s *SuggestionSession) Apply(req SuggestionRequest, candidates []string) bool {
	if !s.Current(req) {
		return false
	}
	s.candidates = append([]string(nil), candidates...)
	s.selected = schema.NoSelection
	s.pending = false
	return true
}

// Fail records a failed lookup for req. The prefix is kept.
func (s *SuggestionSession) Fail(req SuggestionRequest) bool {
	if !s.Current(req) {
		return false
	}
	s.candidates = nil
	s.selected = schema.NoSelection
	s.pending = false
	return true
}

// Move steps the selection. From no selection, Forward enters at the first
// candidate and Backward at the last; after that it wraps.
func (s *SuggestionSession) Move(dir Direction) bool {
	n := len(s.candidates)
	if n == 0 {
		return false
	}
	if s.selected == schema.NoSelection {
		if dir == Backward {
			s.selected = n - 1
		} else {
			s.selected = 0
		}
		return true
	}
	step := 1
	if dir == Backward {
		step = -1
	}
	s.selected = (s.selected + step + n) % n
	return true
}

// Accept returns the candidate at index, or the selected candidate when
// index is negative.
func (s *SuggestionSession) Accept(index int) (string, bool) {
	if index < 0 {
		index = s.selected
	}
	if index < 0 || index >= len(s.candidates) {
		return "", false
	}
	return s.candidates[index], true
}

// Clear empties the session and invalidates any outstanding request.
func (s *SuggestionSession) Clear() {
	s.token++
	s.prefix = ""
	s.candidates = nil
	s.selected = schema.NoSelection
	s.pending = false
}

// HasCandidates reports whether any candidate is listed.
func (s *SuggestionSession) HasCandidates() bool {
	return len(s.candidates) > 0
}

// Len returns the number of candidates.
func (s *SuggestionSession) Len() int {
	return len(s.candidates)
}

// Selected returns the selected index or schema.NoSelection.
func (s *SuggestionSession) Selected() int {
	return s.selected
}

// Pending reports whether a lookup is outstanding.
func (s *SuggestionSession) Pending() bool {
	return s.pending
}

// Snapshot returns a copy for renderers.
func (s *SuggestionSession) Snapshot() schema.SuggestionSnapshot {
	candidates := append([]string{}, s.candidates...)
	return schema.SuggestionSnapshot{
		Prefix:     s.prefix,
		Candidates: candidates,
		Selected:   s.selected,
		Pending:    s.pending,
	}
}
