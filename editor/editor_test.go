// SPDX-License-Identifier: Unlicense OR MIT

package editor

import (
	"testing"

	gotextfont "github.com/go-text/typesetting/font"

	"github.com/inkwell/glyphflow/bidi"
	"github.com/inkwell/glyphflow/caret"
	"github.com/inkwell/glyphflow/fontapi"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/layout"
	"github.com/inkwell/glyphflow/shaping"
)

// noFontCollection reports no matches for every query, exercising the
// editor's layout path without a real loaded font, matching the identical
// fake in itemize_test.go.
type noFontCollection struct{}

func (noFontCollection) Match(script, lang string, family fontapi.Typeface, style fontapi.Style, weight fontapi.Weight, stretch fontapi.Stretch) []fontapi.FontHandle {
	return nil
}
func (noFontCollection) Metrics(fontapi.FontHandle, int) (fontapi.Metrics, bool) {
	return fontapi.Metrics{}, false
}
func (noFontCollection) GlyphBounds(fontapi.FontHandle, uint32, int) (int32, int32, int32, int32, bool) {
	return 0, 0, 0, 0, false
}
func (noFontCollection) Face(fontapi.FontHandle) (gotextfont.Face, bool) {
	return gotextfont.Face{}, false
}

func newTestEditor() *Editor {
	return New(Params{
		Collection:  noFontCollection{},
		Base:        bidi.LTR,
		Size:        fx.I(16),
		LayoutWidth: fx.I(1000),
	})
}

func TestSliceRunsClipsRunStraddlingLineBreak(t *testing.T) {
	// A single itemized run (e.g. one script/font span) can still straddle a
	// wrap point chosen by the line breaker; sliceRuns must clip it to the
	// glyphs that actually belong to each line instead of duplicating the
	// whole run onto both.
	glyphs := []shaping.Glyph{
		{TextRangeLo: 0, TextRangeHi: 1, XAdvance: fx.I(10)},
		{TextRangeLo: 1, TextRangeHi: 2, XAdvance: fx.I(10)},
		{TextRangeLo: 2, TextRangeHi: 3, XAdvance: fx.I(10)},
		{TextRangeLo: 3, TextRangeHi: 4, XAdvance: fx.I(10)},
	}
	run := layout.Run{Kind: layout.RunText, TextStart: 0, TextEnd: 4, Glyphs: glyphs, Advance: fx.I(40)}

	firstLine := sliceRuns([]layout.Run{run}, 0, 2)
	if len(firstLine) != 1 {
		t.Fatalf("expected 1 run on the first line, got %d", len(firstLine))
	}
	if len(firstLine[0].Glyphs) != 2 {
		t.Errorf("expected first line's clipped run to keep 2 glyphs, got %d", len(firstLine[0].Glyphs))
	}
	if firstLine[0].Advance != fx.I(20) {
		t.Errorf("expected clipped advance 20, got %v", firstLine[0].Advance)
	}

	secondLine := sliceRuns([]layout.Run{run}, 2, 4)
	if len(secondLine) != 1 || len(secondLine[0].Glyphs) != 2 {
		t.Fatalf("expected 1 run with 2 glyphs on the second line, got %+v", secondLine)
	}
	if secondLine[0].Glyphs[0].TextRangeLo != 2 {
		t.Errorf("expected second line's run to start at glyph offset 2, got %d", secondLine[0].Glyphs[0].TextRangeLo)
	}
}

func TestSetTextSplitsParagraphs(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("one\ntwo\nthree"))
	if len(e.paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(e.paragraphs))
	}
	if string(e.paragraphs[0].Text) != "one\n" || string(e.paragraphs[1].Text) != "two\n" || string(e.paragraphs[2].Text) != "three" {
		t.Errorf("unexpected paragraph split: %q %q %q", e.paragraphs[0].Text, e.paragraphs[1].Text, e.paragraphs[2].Text)
	}
}

func TestParagraphOffsetInvariant(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("one\ntwo\nthree"))
	for i := 0; i+1 < len(e.paragraphs); i++ {
		p, next := e.paragraphs[i], e.paragraphs[i+1]
		if p.TextStartOffset+len(p.Text) != next.TextStartOffset {
			t.Errorf("paragraph %d: start+count=%d, next start=%d", i, p.TextStartOffset+len(p.Text), next.TextStartOffset)
		}
	}
	last := e.paragraphs[len(e.paragraphs)-1]
	if last.TextStartOffset+len(last.Text) != e.Len() {
		t.Errorf("last paragraph does not reach end of text")
	}
}

func TestReplaceRangeInsertsAndMovesCaret(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("hello world"))
	e.ReplaceRange(5, 5, []rune(","))
	if string(e.Text()) != "hello, world" {
		t.Fatalf("got %q", string(e.Text()))
	}
	if e.caretStart != 6 || e.caretEnd != 6 {
		t.Errorf("expected caret at 6 after insert, got [%d,%d]", e.caretStart, e.caretEnd)
	}
}

func TestReplaceRangeMergesParagraphsAcrossSeparator(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("one\ntwo"))
	// Delete the separator, merging the two paragraphs into one.
	e.ReplaceRange(3, 4, nil)
	if len(e.paragraphs) != 1 {
		t.Fatalf("expected paragraphs to merge into 1, got %d", len(e.paragraphs))
	}
	if string(e.Text()) != "onetwo" {
		t.Errorf("got %q", string(e.Text()))
	}
}

func TestCutRemovesSelection(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("hello world"))
	e.SetCaret(0, 5)
	cut := e.Cut()
	if string(cut) != "hello" {
		t.Errorf("expected cut text %q, got %q", "hello", string(cut))
	}
	if string(e.Text()) != " world" {
		t.Errorf("got %q", string(e.Text()))
	}
}

func TestBackspaceEmojiZWJSequenceDeletesWhole(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("👨‍👩‍👧"))
	changed := 0
	e.OnChange(func() { changed++ })
	e.SetCaret(e.Len(), e.Len())
	e.Backspace()
	if e.Len() != 0 {
		t.Errorf("expected empty text after one backspace over a ZWJ sequence, got %q (len %d)", string(e.Text()), e.Len())
	}
	if changed != 1 {
		t.Errorf("expected on_change to fire exactly once, fired %d times", changed)
	}
}

func TestBackspaceRegionalIndicatorDeletesLastPair(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("🇫🇮🇯🇵"))
	if e.Len() != 4 {
		t.Fatalf("expected 4 codepoints, got %d", e.Len())
	}
	e.SetCaret(e.Len(), e.Len())
	e.Backspace()
	if e.Len() != 2 {
		t.Fatalf("expected 2 codepoints remaining, got %d", e.Len())
	}
	if string(e.Text()) != "🇫🇮" {
		t.Errorf("expected remaining flag to be the first pair, got %q", string(e.Text()))
	}
}

func TestBackspaceStandaloneVariationSelectorDeletesOne(t *testing.T) {
	// A variation selector following a non-emoji base (here plain "a") is
	// not an emoji presentation sequence: backspace should delete only the
	// selector itself, per spec.md §4.9's BEFORE_VS "else standalone
	// combining treatment" branch.
	e := newTestEditor()
	e.SetText([]rune("a️"))
	e.SetCaret(e.Len(), e.Len())
	e.Backspace()
	if string(e.Text()) != "a" {
		t.Errorf("expected only the variation selector removed, got %q", string(e.Text()))
	}
}

func TestBackspaceOrdinaryCharDeletesOne(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("abc"))
	e.SetCaret(3, 3)
	e.Backspace()
	if string(e.Text()) != "ab" {
		t.Errorf("got %q", string(e.Text()))
	}
}

func TestDeleteForwardRemovesOneGrapheme(t *testing.T) {
	e := newTestEditor()
	e.SetText([]rune("abc"))
	e.SetCaret(0, 0)
	e.Delete()
	if string(e.Text()) != "bc" {
		t.Errorf("got %q", string(e.Text()))
	}
}

// buildManualParagraph constructs a single-line Paragraph with a real
// caret.Index, bypassing the font-dependent shaping pipeline, the same way
// caret_test.go's oneLineLayout avoids needing a loaded font.
func buildManualParagraph(text []rune) Paragraph {
	run := layout.Run{
		Kind: layout.RunText, Direction: fx.LTR,
		TextStart: 0, TextEnd: len(text),
		Advance: fx.I(len(text) * 10), Ascent: fx.I(10), Descent: fx.I(3),
	}
	for i := range text {
		run.Glyphs = append(run.Glyphs, shaping.Glyph{TextRangeLo: i, TextRangeHi: i + 1, RuneCount: 1, GlyphCount: 1, XAdvance: fx.I(10)})
	}
	line := layout.AssembleLine(text, []layout.Run{run}, fx.LTR, fx.I(1000), layout.AlignStart, layout.BaselineAlphabetic, nil)
	p := Paragraph{Text: text, Lines: []layout.Line{line}}
	p.Index = caret.Build(text, p.Lines)
	return p
}

func TestSelectionUnitWord(t *testing.T) {
	e := newTestEditor()
	e.paragraphs = []Paragraph{buildManualParagraph([]rune("one two three"))}
	start, end := e.selectionUnit(5, SelectWord)
	// Word-break boundaries land at the start of each non-whitespace run, so
	// a forward jump from inside "two" lands at the start of "three",
	// including the separating space, per MoveWord's boundary semantics.
	if string(e.paragraphs[0].Text[start:end]) != "two " {
		t.Errorf("expected word selection to cover \"two \", got %q", string(e.paragraphs[0].Text[start:end]))
	}
}

func TestSelectionUnitLine(t *testing.T) {
	e := newTestEditor()
	e.paragraphs = []Paragraph{buildManualParagraph([]rune("one two three"))}
	start, end := e.selectionUnit(5, SelectLine)
	if start != 0 || end != len("one two three") {
		t.Errorf("expected whole-line selection [0,%d], got [%d,%d]", len("one two three"), start, end)
	}
}

func TestClickTripleClickEscalatesSelectionMode(t *testing.T) {
	e := newTestEditor()
	e.paragraphs = []Paragraph{buildManualParagraph([]rune("one two three"))}
	e.Click(fx.I(45), 0, false, 1000)
	e.Click(fx.I(45), 0, false, 1100)
	e.Click(fx.I(45), 0, false, 1200)
	if e.clickCount != 3 {
		t.Fatalf("expected triple-click to register clickCount=3, got %d", e.clickCount)
	}
	start, end := e.Selection()
	if start != 0 || end != len("one two three") {
		t.Errorf("expected triple-click to select the whole line, got [%d,%d]", start, end)
	}
}
