// SPDX-License-Identifier: Unlicense OR MIT

// Package layout assembles shaped runs into positioned, visually-reordered
// lines: spec.md §4.6's reorder/position/align/baseline/inline-content/
// decoration/bounds responsibilities. It generalizes gotext.go's
// toLine/computeVisualOrder from "one run per shaping.Line entry" to runs
// that may also be inline ICON/OBJECT content, and adds the alignment,
// baseline, and decoration-materialization steps the teacher leaves to its
// caller (gio resolves alignment/baseline in widget/label.go, outside the
// text package boundary SPEC_FULL.md's layout module now owns).
package layout

import (
	"github.com/inkwell/glyphflow/attrs"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/shaping"
	"github.com/inkwell/glyphflow/ucd"
)

// RunKind distinguishes a shaped-text run from an inline collaborator run.
type RunKind uint8

const (
	RunText RunKind = iota
	RunIcon
	RunObject
)

// Run is a maximal sub-sequence of consecutive glyphs sharing
// (font, attribute_span_idx, direction), or a content run of kind Icon/
// Object owning its own metrics and no glyph range (spec.md §3).
type Run struct {
	Kind      RunKind
	Glyphs    []shaping.Glyph // empty for RunIcon/RunObject
	Direction fx.Direction
	TextStart, TextEnd int // codepoints
	SpanIndex          int

	Advance        fx.Int26_6
	Ascent, Descent fx.Int26_6 // positive-down pen-space extents

	// Inline content metrics (RunIcon/RunObject only).
	Width, Height fx.Int26_6
	ObjectAlign   attrs.ObjectAlign

	// Filled by computeVisualOrder.
	VisualPosition int
	X              fx.Int26_6
}

// HorizontalAlign selects how a line's content is offset within its
// available width, per spec.md §4.6.
type HorizontalAlign uint8

const (
	AlignStart HorizontalAlign = iota
	AlignEnd
	AlignCenter
)

// BaselineAlign selects which font metric a line's glyphs are vertically
// anchored to.
type BaselineAlign uint8

const (
	BaselineAlphabetic BaselineAlign = iota
	BaselineCentral
	BaselineMiddle
	BaselineIdeographic
	BaselineHanging
)

// Line is one assembled, positioned, visually-ordered line of content
// (spec.md §3's Line tuple).
type Line struct {
	Runs        []Run
	VisualOrder []int // visual position -> logical Runs index

	TextStart, TextEnd int
	LastGraphemeOffset int

	Ascender, Descender fx.Int26_6 // ascender <= 0 <= descender, pen coords
	BaselineY           fx.Int26_6
	Width               fx.Int26_6 // alignment width, excludes trailing whitespace advance
	Bounds              fx.Rectangle
	CullingBounds       fx.Rectangle
	IsRTL               bool
	Decorations         []MaterializedDecoration
}

// MaterializedDecoration is one underline/overline/strikethrough segment
// ready to draw, broken at line boundaries per spec.md §4.6.
type MaterializedDecoration struct {
	attrs.Decoration
	X, Length fx.Int26_6
	Y         fx.Int26_6
}

// AssembleLine positions runs (already in logical order) into a Line:
// reorders to visual order, accumulates advances, resolves alignment and
// baseline, folds in inline-content metrics, materializes decorations, and
// computes bounds/culling_bounds. text is the paragraph's full codepoint
// stream runs were itemized from; it is consulted only to classify the
// trailing run's glyphs as whitespace for alignment-width purposes.
func AssembleLine(text []rune, runs []Run, dominant fx.Direction, layoutWidth fx.Int26_6, align HorizontalAlign, baseline BaselineAlign, spans attrs.Spans) Line {
	line := Line{Runs: runs, IsRTL: dominant == fx.RTL}
	if len(runs) == 0 {
		return line
	}
	for i := range line.Runs {
		r := &line.Runs[i]
		if r.TextStart == 0 && r.TextEnd == 0 && i > 0 {
			r.TextStart = line.Runs[i-1].TextEnd
		}
		if line.Ascender > -r.Ascent {
			line.Ascender = -r.Ascent
		}
		if line.Descender < r.Descent {
			line.Descender = r.Descent
		}
	}
	line.TextStart = runs[0].TextStart
	line.TextEnd = runs[len(runs)-1].TextEnd

	computeVisualOrder(&line, dominant)

	trailingWS := trailingWhitespaceAdvance(text, runs)
	line.Width = sumAdvance(runs) - trailingWS

	resolveBaseline(&line, baseline)
	offsetForAlign(&line, layoutWidth, align)
	computeBounds(&line)
	line.Decorations = materializeDecorations(runs, spans, line.BaselineY)
	return line
}

// computeVisualOrder reverses runs whose direction opposes dominant,
// following computeVisualOrder in gotext.go: runs sharing the line's
// dominant progression keep logical order, contiguous runs of the opposing
// progression are reversed as a block, and each run's pen-space X is
// assigned by walking the resulting visual order left to right.
func computeVisualOrder(line *Line, dominant fx.Direction) {
	n := len(line.Runs)
	line.VisualOrder = make([]int, n)
	const none = -1
	bidiStart := none

	visPos := func(logical int) int {
		if dominant.TowardOrigin() {
			return n - 1 - logical
		}
		return logical
	}
	resolve := func(start, end int) {
		firstVisual := end - 1
		for i := start; i < end; i++ {
			pos := visPos(firstVisual)
			line.Runs[i].VisualPosition = pos
			line.VisualOrder[pos] = i
			firstVisual--
		}
	}
	for i, r := range line.Runs {
		if r.Direction != dominant {
			if bidiStart == none {
				bidiStart = i
			}
			continue
		}
		if bidiStart != none {
			resolve(bidiStart, i)
			bidiStart = none
		}
		pos := visPos(i)
		line.Runs[i].VisualPosition = pos
		line.VisualOrder[pos] = i
	}
	if bidiStart != none {
		resolve(bidiStart, n)
	}
	x := fx.Int26_6(0)
	for _, idx := range line.VisualOrder {
		line.Runs[idx].X = x
		x += line.Runs[idx].Advance
	}
}

func sumAdvance(runs []Run) fx.Int26_6 {
	var total fx.Int26_6
	for _, r := range runs {
		total += r.Advance
	}
	return total
}

// trailingWhitespaceAdvance returns the advance of the trailing run of
// whitespace-covering glyphs at the end of the logically-last text run, per
// spec.md §4.5's "excluded from alignment width but included in text_range"
// rule. It walks that run's glyphs back-to-front, using each glyph's
// TextRangeLo to classify the codepoint it covers, and stops at the first
// glyph whose codepoint is not whitespace — only a genuinely trailing run of
// whitespace is excluded, not the whole run's advance.
func trailingWhitespaceAdvance(text []rune, runs []Run) fx.Int26_6 {
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		if r.Kind != RunText || len(r.Glyphs) == 0 {
			continue
		}
		var ws fx.Int26_6
		for j := len(r.Glyphs) - 1; j >= 0; j-- {
			g := r.Glyphs[j]
			if g.TextRangeLo < 0 || g.TextRangeLo >= len(text) || !ucd.IsWhitespace(text[g.TextRangeLo]) {
				break
			}
			ws += g.XAdvance
		}
		return ws
	}
	return 0
}

// resolveBaseline picks BaselineY as an offset from the line's top,
// translating the requested baseline metric into a pen-space Y. Alphabetic
// uses the ascender directly (font baseline == requested baseline);
// central/middle split the line box; ideographic/hanging bias toward the
// top per their usual CJK/Indic conventions. No teacher analogue: gio only
// ever lays out on the alphabetic baseline.
func resolveBaseline(line *Line, baseline BaselineAlign) {
	switch baseline {
	case BaselineAlphabetic:
		line.BaselineY = -line.Ascender
	case BaselineCentral, BaselineMiddle:
		line.BaselineY = (line.Descender - line.Ascender) / 2
	case BaselineIdeographic:
		line.BaselineY = line.Descender
	case BaselineHanging:
		line.BaselineY = 0
	}
}

func offsetForAlign(line *Line, layoutWidth fx.Int26_6, align HorizontalAlign) {
	extra := layoutWidth - line.Width
	if extra <= 0 {
		return
	}
	var offset fx.Int26_6
	rtl := line.IsRTL
	switch align {
	case AlignStart:
		if rtl {
			offset = extra
		}
	case AlignEnd:
		if !rtl {
			offset = extra
		}
	case AlignCenter:
		offset = extra / 2
	}
	if offset == 0 {
		return
	}
	for i := range line.Runs {
		line.Runs[i].X += offset
	}
}

func computeBounds(line *Line) {
	line.Bounds.Min.Y = -line.Ascender
	line.Bounds.Max.Y = line.Descender
	line.Bounds.Max.X = sumAdvance(line.Runs)
	if len(line.VisualOrder) == 0 {
		return
	}
	first := line.Runs[line.VisualOrder[0]]
	if first.Kind == RunText && len(first.Glyphs) > 0 {
		line.Bounds.Min.X = first.Glyphs[0].Bounds.Min.X
	}
	last := line.Runs[line.VisualOrder[len(line.VisualOrder)-1]]
	if last.Kind == RunText && len(last.Glyphs) > 0 {
		g := last.Glyphs[len(last.Glyphs)-1]
		line.Bounds.Max.X = last.X + g.XAdvance
	}
	// culling_bounds is a looser upper bound: pad by each run's own glyph
	// ink bounds so slightly-overhanging glyphs (e.g. swash italics) don't
	// get culled early.
	line.CullingBounds = line.Bounds
	for _, r := range line.Runs {
		for _, g := range r.Glyphs {
			minX := r.X + g.Bounds.Min.X
			maxX := r.X + g.Bounds.Max.X
			if minX < line.CullingBounds.Min.X {
				line.CullingBounds.Min.X = minX
			}
			if maxX > line.CullingBounds.Max.X {
				line.CullingBounds.Max.X = maxX
			}
			if g.Bounds.Min.Y < line.CullingBounds.Min.Y {
				line.CullingBounds.Min.Y = g.Bounds.Min.Y
			}
			if g.Bounds.Max.Y > line.CullingBounds.Max.Y {
				line.CullingBounds.Max.Y = g.Bounds.Max.Y
			}
		}
	}
}

// materializeDecorations walks runs in logical order and emits one
// MaterializedDecoration per maximal sub-range sharing the same requested
// decoration, per spec.md §4.6. Through-lines are appended after
// underline/overline so a caller drawing in slice order gets the
// under/over-before-glyphs, through-line-after-glyphs ordering spec.md
// requires; since this function only materializes geometry (not draw
// calls), callers split on Position when choosing draw order.
func materializeDecorations(runs []Run, spans attrs.Spans, baselineY fx.Int26_6) []MaterializedDecoration {
	var out []MaterializedDecoration
	var cur *MaterializedDecoration
	var curSpan int = -1
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	for _, r := range runs {
		span, ok := spans.At(r.TextStart)
		if !ok || span.Decoration.Style == attrs.DecorationNone {
			flush()
			curSpan = -1
			continue
		}
		spanIdx := span.Start // spans don't carry an index field here; the span's own
		// Start is a stable identity across the multiple itemized runs
		// (script/font splits) that can share one attribute span.
		if cur == nil || curSpan != spanIdx || cur.Position != span.Decoration.Position {
			flush()
			cur = &MaterializedDecoration{
				Decoration: span.Decoration,
				X:          r.X,
				Y:          baselineY + span.Decoration.Offset,
			}
			curSpan = spanIdx
		}
		cur.Length += r.Advance
	}
	flush()
	ordered := make([]MaterializedDecoration, 0, len(out))
	for _, d := range out {
		if d.Position != attrs.DecorationStrikethrough {
			ordered = append(ordered, d)
		}
	}
	for _, d := range out {
		if d.Position == attrs.DecorationStrikethrough {
			ordered = append(ordered, d)
		}
	}
	return ordered
}
