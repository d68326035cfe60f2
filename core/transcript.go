package core

import (
	"strconv"

	"pkt.systems/cmdweb/schema"
)

// lineIDs hands out transcript line identifiers. It is owned by a single
// Transcript and restarts at zero whenever the transcript is reset.
type lineIDs struct {
	next uint64
}

func (g *lineIDs) Next() schema.LineID {
	id := schema.LineID("line-" + strconv.FormatUint(g.next, 10))
	g.next++
	return id
}

func (g *lineIDs) Reset() {
	g.next = 0
}

// Transcript is the ordered list of displayed lines.
// Lines are immutable; the list only changes by Append or Reset.
type Transcript struct {
	lines    []schema.TranscriptLine
	ids      lineIDs
	maxLines int
}

// NewTranscript returns a transcript holding banner. maxLines <= 0 keeps
// every line.
func NewTranscript(maxLines int, banner []schema.OutputLine) *Transcript {
	if maxLines < 0 {
		maxLines = 0
	}
	t := &Transcript{maxLines: maxLines}
	t.Reset(banner)
	return t
}

// Reset replaces every line with banner and restarts line identifiers.
func (t *Transcript) Reset(banner []schema.OutputLine) {
	t.ids.Reset()
	t.lines = make([]schema.TranscriptLine, 0, len(banner))
	t.AppendOutputs(banner)
}

// Append adds one line and returns it.
func (t *Transcript) Append(kind schema.LineKind, text string) schema.TranscriptLine {
	if !kind.Valid() {
		kind = schema.LineOutput
	}
	line := schema.TranscriptLine{ID: t.ids.Next(), Text: text, Kind: kind}
	t.lines = append(t.lines, line)
	if t.maxLines > 0 && len(t.lines) > t.maxLines {
		t.lines = append([]schema.TranscriptLine(nil), t.lines[len(t.lines)-t.maxLines:]...)
	}
	return line
}

// AppendOutputs adds lines in order.
func (t *Transcript) AppendOutputs(lines []schema.OutputLine) {
	for _, line := range lines {
		t.Append(line.Kind, line.Text)
	}
}

// Lines returns a copy of the transcript.
func (t *Transcript) Lines() []schema.TranscriptLine {
	return append([]schema.TranscriptLine{}, t.lines...)
}

// Len returns the number of lines.
func (t *Transcript) Len() int {
	return len(t.lines)
}

// TranscriptView is a window onto a transcript.
type TranscriptView struct {
	Lines        []schema.TranscriptLine
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
}

// ViewTranscript returns up to limit lines ending offset lines above the
// bottom. The returned ScrollOffset is clamped to the valid range.
// A non-positive limit shows everything.
func ViewTranscript(lines []schema.TranscriptLine, limit, offset int) TranscriptView {
	total := len(lines)
	if limit <= 0 || limit > total {
		limit = total
	}
	offset = clampScroll(offset, total, limit)

	end := total - offset
	start := end - limit
	if start < 0 {
		start = 0
	}

	view := make([]schema.TranscriptLine, end-start)
	copy(view, lines[start:end])

	return TranscriptView{
		Lines:        view,
		TotalLines:   total,
		ScrollOffset: offset,
		AtBottom:     offset == 0,
	}
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
