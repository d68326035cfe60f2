package sshserver

import (
	"io"
	"strconv"
	"strings"
)

const (
	escAltScreenOn  = "\x1b[?1049h\x1b[H\x1b[2J"
	escAltScreenOff = "\x1b[?1049l\x1b[?25h"
	escHideCursor   = "\x1b[?25l"
	escShowCursor   = "\x1b[?25h"
	escClearEOL     = "\x1b[K"
	escClearEOS     = "\x1b[J"
)

// screen keeps the rows of the last frame and rewrites only the rows that
// changed. Invalidate forces a full repaint, e.g. after a resize.
type screen struct {
	out   io.Writer
	rows  []string
	row   int
	col   int
	valid bool
}

func newScreen(out io.Writer) *screen {
	return &screen{out: out}
}

func (s *screen) EnterAltScreen() {
	_, _ = io.WriteString(s.out, escAltScreenOn)
	s.valid = false
}

func (s *screen) ExitAltScreen() {
	_, _ = io.WriteString(s.out, escAltScreenOff)
}

func (s *screen) Invalidate() {
	s.valid = false
}

func moveTo(b *strings.Builder, row, col int) {
	b.WriteString("\x1b[")
	b.WriteString(strconv.Itoa(row))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(col))
	b.WriteByte('H')
}

// Render draws lines from the top-left corner and parks the cursor at the
// 1-based cursorRow and cursorCol.
func (s *screen) Render(lines []string, cursorRow, cursorCol int) error {
	cursorRow = max(cursorRow, 1)
	cursorCol = max(cursorCol, 1)

	// A shorter frame must erase what is left below it. The erase follows
	// the last row directly so it never lands on a row that is kept.
	shrink := !s.valid || len(lines) < len(s.rows)
	var b strings.Builder
	changed := false
	for i, line := range lines {
		last := i == len(lines)-1
		if s.valid && i < len(s.rows) && s.rows[i] == line && !(last && shrink) {
			continue
		}
		if !changed {
			b.WriteString(escHideCursor)
			changed = true
		}
		moveTo(&b, i+1, 1)
		b.WriteString(line)
		b.WriteString(escClearEOL)
		if last && shrink {
			b.WriteString(escClearEOS)
		}
	}
	if shrink && len(lines) == 0 {
		b.WriteString(escHideCursor)
		moveTo(&b, 1, 1)
		b.WriteString(escClearEOS)
		changed = true
	}
	if !changed && cursorRow == s.row && cursorCol == s.col {
		return nil
	}
	moveTo(&b, cursorRow, cursorCol)
	if changed {
		b.WriteString(escShowCursor)
	}

	s.rows = append(s.rows[:0], lines...)
	s.row, s.col = cursorRow, cursorCol
	s.valid = true
	_, err := io.WriteString(s.out, b.String())
	return err
}
