package core

import (
	"strings"

	"pkt.systems/cmdweb/schema"
)

// RecallResult describes what a forward recall did.
type RecallResult int

const (
	// RecallNone means the cursor was not browsing or history is empty.
	RecallNone RecallResult = iota
	// RecallMoved means the cursor moved to a newer entry.
	RecallMoved
	// RecallExhausted means the cursor walked past the newest entry and
	// is no longer browsing.
	RecallExhausted
)

// History is the submitted command list of one editor plus its recall cursor.
// Entries are never reordered. Only adjacent duplicates are suppressed.
type History struct {
	entries []string
	max     int
	cursor  int
}

// NewHistory returns an empty history. max <= 0 keeps every entry.
func NewHistory(max int) *History {
	if max < 0 {
		max = 0
	}
	return &History{max: max, cursor: schema.NotBrowsing}
}

// Append stores entry unless it is blank or repeats the newest entry.
func (h *History) Append(entry string) bool {
	if h == nil {
		return false
	}
	if strings.TrimSpace(entry) == "" {
		return false
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	if h.max > 0 && len(h.entries) > h.max {
		trim := len(h.entries) - h.max
		h.entries = h.entries[trim:]
		if h.cursor != schema.NotBrowsing {
			h.cursor -= trim
			if h.cursor < 0 {
				h.cursor = 0
			}
		}
	}
	return true
}

// RecallPrevious moves the cursor one entry older and returns that entry.
// It stops at the oldest entry and reports false only when history is empty.
func (h *History) RecallPrevious() (string, bool) {
	if h == nil || len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == schema.NotBrowsing:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// RecallNext moves the cursor one entry newer. Moving past the newest entry
// leaves browsing and returns RecallExhausted.
func (h *History) RecallNext() (string, RecallResult) {
	if h == nil || h.cursor == schema.NotBrowsing || len(h.entries) == 0 {
		return "", RecallNone
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], RecallMoved
	}
	h.cursor = schema.NotBrowsing
	return "", RecallExhausted
}

// Reset stops browsing.
func (h *History) Reset() {
	if h == nil {
		return
	}
	h.cursor = schema.NotBrowsing
}

// Cursor returns the recall index or schema.NotBrowsing.
func (h *History) Cursor() int {
	if h == nil {
		return schema.NotBrowsing
	}
	return h.cursor
}

// Browsing reports whether the cursor points at an entry.
func (h *History) Browsing() bool {
	return h.Cursor() != schema.NotBrowsing
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Entries returns a copy of the stored entries, oldest first.
func (h *History) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}
