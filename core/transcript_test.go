package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/cmdweb/schema"
)

func TestTranscriptIDsRestartOnReset(t *testing.T) {
	tr := NewTranscript(0, []schema.OutputLine{schema.Info("one"), schema.Info("two")})
	tr.Append(schema.LineInput, "TermAI>ver")
	want := []schema.LineID{"line-0", "line-1", "line-2"}
	got := make([]schema.LineID, 0, tr.Len())
	for _, line := range tr.Lines() {
		got = append(got, line.ID)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	tr.Reset([]schema.OutputLine{schema.Info("fresh")})
	lines := tr.Lines()
	if len(lines) != 1 || lines[0].ID != "line-0" || lines[0].Text != "fresh" {
		t.Fatalf("unexpected lines after reset: %+v", lines)
	}
}

func TestTranscriptSeparateGenerators(t *testing.T) {
	a := NewTranscript(0, nil)
	b := NewTranscript(0, nil)
	a.Append(schema.LineOutput, "a0")
	a.Append(schema.LineOutput, "a1")
	line := b.Append(schema.LineOutput, "b0")
	if line.ID != "line-0" {
		t.Fatalf("expected independent id generator, got %s", line.ID)
	}
}

func TestTranscriptUnknownKindBecomesOutput(t *testing.T) {
	tr := NewTranscript(0, nil)
	line := tr.Append("bogus", "text")
	if line.Kind != schema.LineOutput {
		t.Fatalf("expected output kind, got %q", line.Kind)
	}
}

func TestTranscriptRespectsMaxLines(t *testing.T) {
	tr := NewTranscript(3, nil)
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		tr.Append(schema.LineOutput, text)
	}
	lines := tr.Lines()
	if len(lines) != 3 || lines[0].Text != "three" || lines[2].Text != "five" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
	if lines[2].ID != "line-4" {
		t.Fatalf("ids must keep counting after trim, got %s", lines[2].ID)
	}
}

func TestViewTranscriptScrollClampsToBounds(t *testing.T) {
	tr := NewTranscript(0, nil)
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		tr.Append(schema.LineOutput, text)
	}
	lines := tr.Lines()

	view := ViewTranscript(lines, 3, 10)
	if view.ScrollOffset != 2 {
		t.Fatalf("expected scroll offset 2, got %d", view.ScrollOffset)
	}
	if view.AtBottom {
		t.Fatalf("expected not at bottom")
	}
	if view.Lines[0].Text != "one" || view.Lines[2].Text != "three" {
		t.Fatalf("unexpected view: %+v", view.Lines)
	}

	view = ViewTranscript(lines, 3, -4)
	if view.ScrollOffset != 0 || !view.AtBottom {
		t.Fatalf("expected bottom view, got %+v", view)
	}
	if view.Lines[2].Text != "five" {
		t.Fatalf("unexpected last line %q", view.Lines[2].Text)
	}

	view = ViewTranscript(lines, 0, 3)
	if len(view.Lines) != 5 || view.ScrollOffset != 0 {
		t.Fatalf("expected full view, got %+v", view)
	}
}
