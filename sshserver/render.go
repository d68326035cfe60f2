package sshserver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/schema"
)

const (
	maxSuggestionRows = 6
	loadingLabel      = "Loading..."
	moreLabel         = "-- more below (PgDn) --"
)

func renderPrompt(prompt string, theme tuiTheme) string {
	return ansiFgRGB(theme.PromptFG) + sanitizeOutputLine(prompt) + ansiFgRGB(theme.PromptGtFG) + ">" + ansiReset
}

// renderTranscriptLine wraps one transcript line to width and styles it by kind.
func renderTranscriptLine(line schema.TranscriptLine, width int, theme tuiTheme) []string {
	switch line.Kind {
	case schema.LineError:
		return wrapStyledLines(line.Text, width, ansiBold+ansiFgRGB(theme.ErrorFG))
	case schema.LineInfo:
		return wrapStyledLines(line.Text, width, ansiFgRGB(theme.InfoFG))
	case schema.LineInput:
		return wrapStyledLines(line.Text, width, ansiFgRGB(theme.EchoFG))
	default:
		return wrapPlainLines(line.Text, width)
	}
}

// renderViewport renders the transcript window that ends offset lines above
// the bottom. The returned view carries the clamped offset.
func renderViewport(lines []schema.TranscriptLine, width, height, offset int, theme tuiTheme) ([]string, core.TranscriptView) {
	view := core.ViewTranscript(lines, height, offset)
	if height <= 0 {
		return nil, view
	}
	var rows []string
	for _, line := range view.Lines {
		rows = append(rows, renderTranscriptLine(line, width, theme)...)
	}
	if len(rows) > height {
		rows = rows[len(rows)-height:]
	}
	if !view.AtBottom && len(rows) > 0 {
		rows[len(rows)-1] = ansiDim + ansiFgRGB(theme.MetaFG) + trimToWidth(moreLabel, width) + ansiReset
	}
	for len(rows) < height {
		rows = append([]string{""}, rows...)
	}
	return rows, view
}

// renderSuggestions lists candidates below the input line, keeping the
// selected one visible, plus a loading row while a lookup is pending.
func renderSuggestions(s schema.SuggestionSnapshot, width int, theme tuiTheme) []string {
	var rows []string
	if len(s.Candidates) > 0 {
		start := 0
		if s.Selected >= maxSuggestionRows {
			start = s.Selected - maxSuggestionRows + 1
		}
		end := start + maxSuggestionRows
		if end > len(s.Candidates) {
			end = len(s.Candidates)
		}
		boxWidth := 0
		for _, candidate := range s.Candidates[start:end] {
			if w := runewidth.StringWidth(candidate) + 2; w > boxWidth {
				boxWidth = w
			}
		}
		if boxWidth > width {
			boxWidth = width
		}
		for i := start; i < end; i++ {
			label := trimToWidth(" "+sanitizeOutputLine(s.Candidates[i])+" ", boxWidth)
			if pad := boxWidth - runewidth.StringWidth(label); pad > 0 {
				label += strings.Repeat(" ", pad)
			}
			style := ansiBgRGB(theme.SuggestBG) + ansiFgRGB(theme.SuggestFG)
			if i == s.Selected {
				style = ansiBgRGB(theme.SuggestSelBG) + ansiFgRGB(theme.SuggestSelFG) + ansiBold
			}
			rows = append(rows, style+label+ansiReset)
		}
	}
	if s.Pending {
		rows = append(rows, ansiDim+ansiItalic+ansiFgRGB(theme.MetaFG)+trimToWidth(loadingLabel, width)+ansiReset)
	}
	return rows
}

// renderInputLines wraps prefix+input to width. The cursor sits after the
// last rune; the returned row and column are 1-based.
func renderInputLines(prefix, input string, width int) ([]string, int, int) {
	prefixWidth := visibleWidth(prefix)
	if width <= 0 {
		width = prefixWidth + runewidth.StringWidth(input) + 1
	}
	prefixVisible := prefix
	if prefixWidth > width {
		prefixVisible = trimANSIToWidth(prefix, width)
		prefixWidth = visibleWidth(prefixVisible)
	}
	var lines []string
	var current strings.Builder
	current.WriteString(prefixVisible)
	col := prefixWidth
	for _, r := range input {
		w := runewidth.RuneWidth(r)
		if col+w > width {
			lines = append(lines, current.String())
			current.Reset()
			col = 0
		}
		current.WriteRune(r)
		col += w
	}
	if col >= width {
		lines = append(lines, current.String())
		current.Reset()
		col = 0
	}
	lines = append(lines, current.String())
	return lines, len(lines), col + 1
}

type textToken struct {
	text  string
	space bool
}

func tokenizeText(text string) []textToken {
	if text == "" {
		return nil
	}
	var tokens []textToken
	var buf strings.Builder
	inSpace := false
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		tokens = append(tokens, textToken{text: buf.String(), space: inSpace})
		buf.Reset()
	}
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !inSpace {
				flush()
				inSpace = true
			}
			buf.WriteRune(' ')
			continue
		}
		if inSpace {
			flush()
			inSpace = false
		}
		buf.WriteRune(r)
	}
	flush()
	return tokens
}

// wrapPlainLines word-wraps text to width display cells. Words wider than
// a row are split.
func wrapPlainLines(text string, width int) []string {
	if width <= 0 {
		return []string{""}
	}
	sanitized := sanitizeOutputLine(text)
	if sanitized == "" {
		return []string{""}
	}
	lines := make([]string, 0, 2)
	var b strings.Builder
	visible := 0
	suppressLeadingSpace := false
	flush := func(wrapped bool) {
		if b.Len() == 0 {
			return
		}
		lines = append(lines, b.String())
		b.Reset()
		visible = 0
		suppressLeadingSpace = wrapped
	}
	for _, token := range tokenizeText(sanitized) {
		if token.space {
			if visible == 0 && suppressLeadingSpace {
				continue
			}
			spaceLen := len(token.text)
			if visible+spaceLen > width {
				flush(true)
				continue
			}
			b.WriteString(token.text)
			visible += spaceLen
			continue
		}
		wordLen := runewidth.StringWidth(token.text)
		if wordLen > width {
			if visible > 0 {
				flush(true)
			}
			for _, r := range token.text {
				w := runewidth.RuneWidth(r)
				if visible+w > width {
					flush(true)
				}
				b.WriteRune(r)
				visible += w
			}
			suppressLeadingSpace = false
			continue
		}
		if visible+wordLen > width && visible > 0 {
			flush(true)
		}
		b.WriteString(token.text)
		visible += wordLen
		suppressLeadingSpace = false
	}
	flush(false)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func wrapStyledLines(text string, width int, style string) []string {
	lines := wrapPlainLines(text, width)
	styled := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			styled = append(styled, line)
			continue
		}
		styled = append(styled, style+line+ansiReset)
	}
	return styled
}

func trimToWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(value, width, "")
}

// sanitizeOutputLine strips escape sequences and control characters so
// transcript text cannot drive the client terminal.
func sanitizeOutputLine(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		ch := text[i]
		if ch == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r == '\t' {
			b.WriteString("    ")
			i += size
			continue
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func skipEscape(text string, i int) int {
	if i >= len(text) {
		return i
	}
	switch text[i] {
	case '[':
		return skipCSI(text, i+1)
	case ']':
		return skipOSC(text, i+1)
	default:
		return i + 1
	}
}

func skipCSI(text string, i int) int {
	for i < len(text) {
		b := text[i]
		if b >= 0x40 && b <= 0x7e {
			return i + 1
		}
		i++
	}
	return i
}

func skipOSC(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case 0x07:
			return i + 1
		case 0x1b:
			if i+1 < len(text) && text[i+1] == '\\' {
				return i + 2
			}
		}
		i++
	}
	return i
}

// visibleWidth counts display cells, ignoring escape sequences.
func visibleWidth(text string) int {
	width := 0
	for i := 0; i < len(text); {
		if text[i] == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if size == 0 {
			break
		}
		i += size
		width += runewidth.RuneWidth(r)
	}
	return width
}

func trimANSIToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	visible := 0
	for i := 0; i < len(text); {
		if text[i] == 0x1b {
			start := i
			i = skipEscape(text, i+1)
			b.WriteString(text[start:i])
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if size == 0 {
			break
		}
		w := runewidth.RuneWidth(r)
		if visible+w > width {
			break
		}
		b.WriteRune(r)
		i += size
		visible += w
	}
	return b.String()
}
