// SPDX-License-Identifier: Unlicense OR MIT

// Package caret implements grapheme-aligned, bidi-aware caret navigation,
// hit testing, and selection-rectangle geometry (spec.md §4.7). Its
// position index is adapted from glyphIndex/combinedPos in
// widget/index.go: the same "walk glyphs once, emit one caret position per
// grapheme boundary, remember per-line metadata" structure, generalized
// from gio's single simple/skribidi-less caret model to the two navigation
// modes spec.md §4.7 names.
package caret

import (
	"sort"

	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/layout"
	"github.com/inkwell/glyphflow/ucd"
)

// Affinity disambiguates a text position that could refer to more than one
// visual location: the end of a wrapped line, a direction-change boundary,
// or the start/end of a line.
type Affinity uint8

const (
	AffinityNone Affinity = iota
	AffinityLeading
	AffinityTrailing
	AffinitySOL
	AffinityEOL
)

// Position is a text position: a codepoint offset plus the affinity needed
// to disambiguate it, per spec.md §3.
type Position struct {
	Offset   int
	Affinity Affinity
}

// Mode selects the navigation algorithm moveOffset* uses.
type Mode uint8

const (
	// Simple moves one grapheme at a time in logical order.
	Simple Mode = iota
	// Skribidi additionally stops at direction-change boundaries on the
	// same line, producing two carets at each change.
	Skribidi
)

// caretPos is one indexed caret position: a grapheme boundary plus its
// visual (x, line) coordinates and run/direction bookkeeping, mirroring
// combinedPos in widget/index.go.
type caretPos struct {
	offset    int // codepoints
	line, col int
	x         fx.Int26_6
	y         fx.Int26_6
	ascent, descent fx.Int26_6
	runIndex  int
	rtl       bool
}

// lineMeta mirrors lineInfo in widget/index.go: per-line geometry needed
// for hit testing and region synthesis.
type lineMeta struct {
	xOff, width     fx.Int26_6
	y               fx.Int26_6
	ascent, descent fx.Int26_6
}

// Index is a built position index over a layout.Line slice, supporting
// hit-testing, navigation, and selection geometry in better-than-linear
// time on long documents (spec.md §5's "Word/line index acceleration
// structure" supplement).
type Index struct {
	text      []rune
	positions []caretPos
	lines     []lineMeta
}

// Build walks lines (already positioned by the layout package) and
// constructs an Index, inserting one caretPos per grapheme-cluster boundary
// within each line, matching glyphIndex.Glyph's per-cluster position
// insertion.
func Build(text []rune, lines []layout.Line) *Index {
	idx := &Index{text: text}
	for lineNum, line := range lines {
		lm := lineMeta{y: line.BaselineY, ascent: -line.Ascender, descent: line.Descender, width: line.Width}
		lineStartPosCount := len(idx.positions)
		col := 0
		for _, runIdx := range line.VisualOrder {
			r := line.Runs[runIdx]
			if r.Kind != layout.RunText {
				idx.positions = append(idx.positions, caretPos{
					offset: r.TextStart, line: lineNum, col: col,
					x: r.X, y: lm.y, ascent: lm.ascent, descent: lm.descent,
					runIndex: runIdx, rtl: r.Direction == fx.RTL,
				})
				col++
				continue
			}
			idx.appendRunPositions(r, lineNum, &col, lm)
		}
		if len(idx.positions) == lineStartPosCount {
			// Empty line: still needs one position so hit testing and
			// line-by-line iteration work on blank lines.
			idx.positions = append(idx.positions, caretPos{offset: line.TextStart, line: lineNum, y: lm.y, ascent: lm.ascent, descent: lm.descent})
		}
		if lm.xOff == 0 && len(line.Runs) > 0 {
			lm.xOff = line.Runs[line.VisualOrder[0]].X
		}
		idx.lines = append(idx.lines, lm)
	}
	return idx
}

// appendRunPositions emits one caretPos per grapheme-cluster boundary
// within r's text range, apportioning the run's glyph advances evenly per
// grapheme the way glyphIndex.Glyph divides a shaping cluster's advance by
// gl.Runes.
func (idx *Index) appendRunPositions(r layout.Run, lineNum int, col *int, lm lineMeta) {
	clusters := ucd.GraphemeClusters(string(idx.text[r.TextStart:r.TextEnd]))
	rtl := r.Direction == fx.RTL
	pos := r.TextStart
	x := r.X
	if rtl {
		x += r.Advance
	}
	// Leading-edge position before the run's first grapheme.
	idx.positions = append(idx.positions, caretPos{offset: pos, line: lineNum, col: *col, x: x, y: lm.y, ascent: lm.ascent, descent: lm.descent, rtl: rtl})
	for _, cl := range clusters {
		n := len([]rune(cl))
		advance := advanceForRange(r, pos-r.TextStart, pos-r.TextStart+n)
		if rtl {
			x -= advance
		} else {
			x += advance
		}
		pos += n
		*col++
		idx.positions = append(idx.positions, caretPos{offset: pos, line: lineNum, col: *col, x: x, y: lm.y, ascent: lm.ascent, descent: lm.descent, rtl: rtl})
	}
}

func advanceForRange(r layout.Run, lo, hi int) fx.Int26_6 {
	var total fx.Int26_6
	for _, g := range r.Glyphs {
		if g.TextRangeLo >= r.TextStart+lo && g.TextRangeLo < r.TextStart+hi {
			total += g.XAdvance
		}
	}
	return total
}

// closestToOffset returns the caretPos at or immediately before offset,
// matching glyphIndex.closestToRune's sort.Search-then-scan-forward shape.
func (idx *Index) closestToOffset(offset int) (caretPos, int) {
	if len(idx.positions) == 0 {
		return caretPos{}, 0
	}
	i := sort.Search(len(idx.positions), func(i int) bool { return idx.positions[i].offset >= offset })
	if i > 0 {
		i--
	}
	for j := i; j < len(idx.positions); j++ {
		if idx.positions[j].offset == offset {
			return idx.positions[j], j
		}
	}
	return idx.positions[i], i
}

// HitTest resolves a pixel coordinate to the nearest Position, following
// the "select line by y, then nearest x, ties favor leading" rule in
// spec.md §4.7; mirrors closestToXY in widget/index.go.
func (idx *Index) HitTest(x, y fx.Int26_6) Position {
	if len(idx.positions) == 0 {
		return Position{}
	}
	lineNum := sort.Search(len(idx.lines), func(i int) bool { return idx.lines[i].y+idx.lines[i].descent >= y })
	if lineNum >= len(idx.lines) {
		lineNum = len(idx.lines) - 1
	}
	start := sort.Search(len(idx.positions), func(i int) bool { return idx.positions[i].line >= lineNum })
	best := start
	bestDist := dist(idx.positions[start].x, x)
	for i := start + 1; i < len(idx.positions) && idx.positions[i].line == lineNum; i++ {
		d := dist(idx.positions[i].x, x)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	p := idx.positions[best]
	return Position{Offset: p.offset, Affinity: AffinityLeading}
}

func dist(a, b fx.Int26_6) fx.Int26_6 {
	if a > b {
		return a - b
	}
	return b - a
}

// VisualCaret is the {x, y, width, height, direction} tuple spec.md §4.7's
// visual-caret operation returns for a text position.
type VisualCaret struct {
	X, Y          fx.Int26_6
	Width, Height fx.Int26_6
	Direction     fx.Direction
}

// Caret returns the visual caret geometry for pos.
func (idx *Index) Caret(pos Position) VisualCaret {
	p, _ := idx.closestToOffset(pos.Offset)
	return VisualCaret{
		X: p.x, Y: p.y,
		Height:    p.ascent + p.descent,
		Direction: directionOf(p.rtl),
	}
}

func directionOf(rtl bool) fx.Direction {
	if rtl {
		return fx.RTL
	}
	return fx.LTR
}

// MoveForward advances pos by one grapheme in mode, following spec.md
// §4.7's advance-forward algorithm: skribidi mode additionally stops at
// same-line direction changes, producing a caret on each side of the
// boundary instead of skipping straight over it.
func (idx *Index) MoveForward(pos Position, mode Mode) Position {
	_, i := idx.closestToOffset(pos.Offset)
	if i+1 >= len(idx.positions) {
		return Position{Offset: idx.positions[len(idx.positions)-1].offset, Affinity: AffinityEOL}
	}
	cur := idx.positions[i]
	next := idx.positions[i+1]
	if mode == Skribidi && cur.rtl != next.rtl && cur.line == next.line {
		if pos.Affinity != AffinityTrailing {
			return Position{Offset: cur.offset, Affinity: AffinityTrailing}
		}
		return Position{Offset: next.offset, Affinity: AffinityLeading}
	}
	aff := AffinityLeading
	if next.line != cur.line {
		aff = AffinityEOL
	}
	return Position{Offset: next.offset, Affinity: aff}
}

// MoveBackward is the symmetric reverse of MoveForward.
func (idx *Index) MoveBackward(pos Position, mode Mode) Position {
	_, i := idx.closestToOffset(pos.Offset)
	if i == 0 {
		return Position{Offset: idx.positions[0].offset, Affinity: AffinitySOL}
	}
	cur := idx.positions[i]
	prev := idx.positions[i-1]
	if mode == Skribidi && cur.rtl != prev.rtl && cur.line == prev.line {
		if pos.Affinity != AffinityLeading {
			return Position{Offset: cur.offset, Affinity: AffinityLeading}
		}
		return Position{Offset: prev.offset, Affinity: AffinityTrailing}
	}
	aff := AffinityTrailing
	if prev.line != cur.line {
		aff = AffinitySOL
	}
	return Position{Offset: prev.offset, Affinity: aff}
}

// MoveWord jumps to the next word-break boundary whose following codepoint
// is not whitespace, per spec.md §4.7.
func (idx *Index) MoveWord(offset int, forward bool) int {
	if forward {
		for i := offset + 1; i < len(idx.text); i++ {
			if !ucd.IsWhitespace(idx.text[i]) && isWordStart(idx.text, i) {
				return i
			}
		}
		return len(idx.text)
	}
	for i := offset - 1; i > 0; i-- {
		if !ucd.IsWhitespace(idx.text[i]) && isWordStart(idx.text, i) {
			return i
		}
	}
	return 0
}

func isWordStart(text []rune, i int) bool {
	if i == 0 {
		return true
	}
	return ucd.IsWhitespace(text[i-1]) != ucd.IsWhitespace(text[i])
}

// Region is a visually-contiguous selection rectangle on one line, per
// spec.md §4.7's "union of rectangles per maximal visually-contiguous
// range", mirroring region/makeRegion in widget/index.go.
type Region struct {
	Bounds   fx.Rectangle
	Baseline fx.Int26_6
}

// Locate returns the selection regions covering [startOffset,endOffset),
// one region per line spanned, following locate's per-line walk in
// widget/index.go. A line's region is not split at run-direction changes.
func (idx *Index) Locate(startOffset, endOffset int) []Region {
	if startOffset > endOffset {
		startOffset, endOffset = endOffset, startOffset
	}
	startPos, _ := idx.closestToOffset(startOffset)
	endPos, _ := idx.closestToOffset(endOffset)
	var regions []Region
	for lineNum := startPos.line; lineNum <= endPos.line && lineNum < len(idx.lines); lineNum++ {
		line := idx.lines[lineNum]
		var lo, hi fx.Int26_6
		switch {
		case lineNum > startPos.line && lineNum < endPos.line:
			lo, hi = line.xOff, line.xOff+line.width
		case lineNum == startPos.line && lineNum == endPos.line:
			lo, hi = startPos.x, endPos.x
		case lineNum == startPos.line:
			lo, hi = startPos.x, line.xOff+line.width
		default:
			lo, hi = line.xOff, endPos.x
		}
		regions = append(regions, makeRegion(line, lo, hi))
	}
	return regions
}

func makeRegion(line lineMeta, start, end fx.Int26_6) Region {
	if start > end {
		start, end = end, start
	}
	return Region{
		Bounds: fx.Rectangle{
			Min: fx.Point{X: start, Y: line.y - line.ascent},
			Max: fx.Point{X: end, Y: line.y + line.descent},
		},
		Baseline: line.descent,
	}
}
