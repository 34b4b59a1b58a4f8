// SPDX-License-Identifier: Unlicense OR MIT

package layout

import (
	"testing"

	"github.com/inkwell/glyphflow/attrs"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/shaping"
)

func textRun(start, end int, advance fx.Int26_6, dir fx.Direction) Run {
	return Run{
		Kind:      RunText,
		Direction: dir,
		TextStart: start,
		TextEnd:   end,
		Advance:   advance,
		Ascent:    fx.I(10),
		Descent:   fx.I(3),
	}
}

func TestComputeVisualOrderAllLTR(t *testing.T) {
	runs := []Run{
		textRun(0, 2, fx.I(10), fx.LTR),
		textRun(2, 4, fx.I(10), fx.LTR),
	}
	line := AssembleLine(nil, runs, fx.LTR, fx.I(1000), AlignStart, BaselineAlphabetic, nil)
	if line.VisualOrder[0] != 0 || line.VisualOrder[1] != 1 {
		t.Errorf("expected logical order preserved for all-LTR line, got %v", line.VisualOrder)
	}
	if line.Runs[1].X != fx.I(10) {
		t.Errorf("expected second run to start at X=10, got %v", line.Runs[1].X)
	}
}

func TestComputeVisualOrderReversesRTLBlock(t *testing.T) {
	runs := []Run{
		textRun(0, 2, fx.I(10), fx.LTR),
		textRun(2, 4, fx.I(10), fx.RTL),
		textRun(4, 6, fx.I(10), fx.RTL),
		textRun(6, 8, fx.I(10), fx.LTR),
	}
	line := AssembleLine(nil, runs, fx.LTR, fx.I(1000), AlignStart, BaselineAlphabetic, nil)
	// The RTL block (logical indices 1,2) should be visually reversed: run 2
	// appears before run 1.
	if line.Runs[2].VisualPosition >= line.Runs[1].VisualPosition {
		t.Errorf("expected RTL block to be visually reversed: run1 pos=%d run2 pos=%d",
			line.Runs[1].VisualPosition, line.Runs[2].VisualPosition)
	}
}

func TestAlignCenterOffsetsAllRuns(t *testing.T) {
	runs := []Run{textRun(0, 2, fx.I(10), fx.LTR)}
	line := AssembleLine(nil, runs, fx.LTR, fx.I(100), AlignCenter, BaselineAlphabetic, nil)
	want := (fx.I(100) - fx.I(10)) / 2
	if line.Runs[0].X != want {
		t.Errorf("expected centered run at X=%v, got %v", want, line.Runs[0].X)
	}
}

func TestWidthExcludesOnlyTrailingWhitespaceGlyphs(t *testing.T) {
	// "ab " - two ink glyphs followed by one trailing space glyph. Width must
	// exclude just the space's advance, not the whole run's.
	text := []rune("ab ")
	run := Run{
		Kind:      RunText,
		Direction: fx.LTR,
		TextStart: 0,
		TextEnd:   3,
		Ascent:    fx.I(10),
		Descent:   fx.I(3),
		Glyphs: []shaping.Glyph{
			{TextRangeLo: 0, TextRangeHi: 1, XAdvance: fx.I(10)},
			{TextRangeLo: 1, TextRangeHi: 2, XAdvance: fx.I(10)},
			{TextRangeLo: 2, TextRangeHi: 3, XAdvance: fx.I(5)},
		},
	}
	for _, g := range run.Glyphs {
		run.Advance += g.XAdvance
	}
	line := AssembleLine(text, []Run{run}, fx.LTR, fx.I(1000), AlignStart, BaselineAlphabetic, nil)
	if want := fx.I(20); line.Width != want {
		t.Errorf("Width = %v, want %v (advance of the two non-whitespace glyphs)", line.Width, want)
	}
}

func TestWidthStopsAtFirstNonWhitespaceGlyphFromEnd(t *testing.T) {
	// "a b" - a space in the middle must not be excluded, since it isn't
	// trailing: the last glyph is non-whitespace.
	text := []rune("a b")
	run := Run{
		Kind:      RunText,
		Direction: fx.LTR,
		TextStart: 0,
		TextEnd:   3,
		Ascent:    fx.I(10),
		Descent:   fx.I(3),
		Glyphs: []shaping.Glyph{
			{TextRangeLo: 0, TextRangeHi: 1, XAdvance: fx.I(10)},
			{TextRangeLo: 1, TextRangeHi: 2, XAdvance: fx.I(5)},
			{TextRangeLo: 2, TextRangeHi: 3, XAdvance: fx.I(10)},
		},
	}
	for _, g := range run.Glyphs {
		run.Advance += g.XAdvance
	}
	line := AssembleLine(text, []Run{run}, fx.LTR, fx.I(1000), AlignStart, BaselineAlphabetic, nil)
	if want := fx.I(25); line.Width != want {
		t.Errorf("Width = %v, want %v (no trailing whitespace to exclude)", line.Width, want)
	}
}

func TestMaterializeDecorationsMergesAcrossRuns(t *testing.T) {
	// Two itemized runs (e.g. a script or font split) both falling inside the
	// same underlined attribute span must materialize as one merged
	// decoration segment, not two, per spec.md §4.6's "contiguous codepoint
	// sub-ranges with the same decoration attribute" rule.
	spans := attrs.Spans{
		{Start: 0, End: 8, Decoration: attrs.Decoration{
			Position: attrs.DecorationUnderline,
			Style:    attrs.DecorationSolid,
		}},
	}
	runs := []Run{
		textRun(0, 4, fx.I(10), fx.LTR),
		textRun(4, 8, fx.I(10), fx.LTR),
	}
	line := AssembleLine(nil, runs, fx.LTR, fx.I(1000), AlignStart, BaselineAlphabetic, spans)
	if len(line.Decorations) != 1 {
		t.Fatalf("expected 1 merged decoration segment, got %d: %+v", len(line.Decorations), line.Decorations)
	}
	if want := fx.I(20); line.Decorations[0].Length != want {
		t.Errorf("merged decoration length = %v, want %v", line.Decorations[0].Length, want)
	}
}

func TestEmptyLineHasNoRuns(t *testing.T) {
	line := AssembleLine(nil, nil, fx.LTR, fx.I(100), AlignStart, BaselineAlphabetic, nil)
	if len(line.Runs) != 0 || len(line.VisualOrder) != 0 {
		t.Errorf("expected empty line to have no runs or visual order")
	}
}
