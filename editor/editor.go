// SPDX-License-Identifier: Unlicense OR MIT

// Package editor implements the multi-paragraph text buffer spec.md §4.9
// describes: a gap-buffered codepoint stream split into paragraphs at
// paragraph separators, edited exclusively through replace_range, with
// mouse click/drag selection and an emoji/ZWJ/regional-indicator-aware
// backspace state machine. It generalizes Editor.replace/Delete/deleteWord
// in _teacher_ref/widget/editor.go from one flat buffer with no paragraph
// concept to an array of independently-laid-out Paragraphs, since
// SPEC_FULL.md's layout/caret packages operate per-paragraph.
package editor

import (
	"bytes"
	"encoding/binary"

	"github.com/inkwell/glyphflow/arena"
	"github.com/inkwell/glyphflow/attrs"
	"github.com/inkwell/glyphflow/bidi"
	"github.com/inkwell/glyphflow/caret"
	"github.com/inkwell/glyphflow/fontapi"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/itemize"
	"github.com/inkwell/glyphflow/layout"
	"github.com/inkwell/glyphflow/layoutcache"
	"github.com/inkwell/glyphflow/linebreak"
	"github.com/inkwell/glyphflow/shaping"
	"github.com/inkwell/glyphflow/ucd"
	"github.com/inkwell/glyphflow/utext"
)

// Paragraph owns one maximal run of text between paragraph separators, its
// current layout, and a version counter callers use to detect which
// paragraphs changed since they last queried (spec.md §3/§4.9's Paragraph
// tuple, generalized from the teacher's single implicit paragraph).
type Paragraph struct {
	Text            []rune
	TextStartOffset int
	Y               fx.Int26_6
	Lines           []layout.Line
	Index           *caret.Index
	Version         int
}

// SelectionMode selects what unit click/drag extend by, per spec.md §4.9's
// single/double/triple-click behavior.
type SelectionMode uint8

const (
	SelectChar SelectionMode = iota
	SelectWord
	SelectLine
)

// MultiClickWindow is the double/triple-click timing window spec.md §4.9
// names ("≈0.4s").
const MultiClickWindow = 400 // milliseconds

// Params bundles the shaping/layout configuration a paragraph rebuild
// needs, mirroring the parameters Editor.layout threads through
// layoutText/shape in the teacher.
type Params struct {
	Collection    fontapi.Collection
	Fallback      fontapi.FallbackFunc
	Spans         attrs.Spans
	Base          bidi.BaseDirection
	Font          fontapi.Font
	Size          fx.Int26_6
	Lang          string
	LayoutWidth   fx.Int26_6
	Align         layout.HorizontalAlign
	Baseline      layout.BaselineAlign
	WrapMode      linebreak.Mode
	SingleLine    bool
}

// Editor is the multi-paragraph buffer, generalizing Editor in
// _teacher_ref/widget/editor.go from one gap buffer to a gap buffer plus a
// derived Paragraph array rebuilt incrementally on each replace_range.
type Editor struct {
	buf        *gapBuffer
	paragraphs []Paragraph
	params     Params

	caretStart, caretEnd int // codepoint offsets; caretStart==caretEnd means no selection
	caretAffinity        caret.Affinity
	preferredX           fx.Int26_6
	hasPreferredX        bool

	lastClickTime   int64
	lastClickOffset int
	clickCount      int
	dragAnchorStart int
	dragAnchorEnd   int

	onChange func()

	shaper shaping.Shaper

	// Scratch for one layoutParagraph call at a time: Push at the start of a
	// rebuild, Pop once its intermediates (itemized runs, the glyph
	// concatenation fed to the line breaker, the chosen break points) are
	// fully consumed, the same reused-buffer-per-call shape as the teacher's
	// splitScratch1/splitScratch2/outScratchBuf fields.
	runScratch   arena.TypedArena[itemize.Run]
	glyphScratch arena.TypedArena[shaping.Glyph]
	breakScratch arena.TypedArena[linebreak.Break]

	layoutCache layoutcache.Cache[[]layout.Line]
	cacheHasher layoutcache.Hasher
}

// New constructs an empty Editor ready for SetText.
func New(params Params) *Editor {
	return &Editor{buf: newGapBuffer(nil), params: params}
}

// OnChange registers the single on_change callback spec.md §4.9 names; it
// fires after any mutation that affects text, with no partial-update
// signal — callers re-query Paragraphs() and compare Version.
func (e *Editor) OnChange(fn func()) { e.onChange = fn }

// Text returns the full document text.
func (e *Editor) Text() []rune { return e.buf.runes() }

// Len returns the document length in codepoints.
func (e *Editor) Len() int { return e.buf.len() }

// Paragraphs returns the current paragraph array.
func (e *Editor) Paragraphs() []Paragraph { return e.paragraphs }

// Selection returns the current caret/selection range.
func (e *Editor) Selection() (start, end int) { return e.caretStart, e.caretEnd }

// SetText replaces the entire document, splitting on paragraph separators,
// per spec.md §4.9's set_text.
func (e *Editor) SetText(text []rune) {
	e.buf = newGapBuffer(text)
	e.caretStart, e.caretEnd = 0, 0
	e.rebuildParagraphs(0, e.buf.len())
	e.notify()
}

// ReplaceRange is the core edit primitive (spec.md §4.9): it detaches the
// start/end paragraphs, merges their surviving head/tail with the inserted
// text (re-split on separators), rebuilds only the affected paragraphs, and
// positions the caret at the leading edge of the last inserted grapheme (or
// trailing edge if the insertion ends in a line feed).
func (e *Editor) ReplaceRange(start, end int, text []rune) {
	if start > end {
		start, end = end, start
	}
	start = clamp(start, 0, e.buf.len())
	end = clamp(end, 0, e.buf.len())

	e.buf.deleteRunes(start, end-start)
	e.buf.prepend(start, text)

	newEnd := start + len(text)
	adjust := func(pos int) int {
		switch {
		case newEnd < pos && pos <= end:
			return newEnd
		case end < pos:
			return pos + (newEnd - end)
		}
		return pos
	}
	e.caretStart = adjust(e.caretStart)
	e.caretEnd = adjust(e.caretEnd)

	rebuildLo, rebuildHi := e.affectedRange(start, newEnd)
	e.rebuildParagraphs(rebuildLo, rebuildHi)

	// The caret always lands right after the inserted text (or at the edit
	// point, for a pure deletion); what varies is affinity, which
	// disambiguates *which* visual position that offset renders at when it
	// falls on a line-wrap boundary: trailing-edge-of-this-line when the
	// insertion ends with a line feed, leading-edge-of-the-next-content
	// otherwise.
	e.caretStart, e.caretEnd = newEnd, newEnd
	if len(text) > 0 && text[len(text)-1] == '\n' {
		e.caretAffinity = caret.AffinityTrailing
	} else {
		e.caretAffinity = caret.AffinityLeading
	}
	e.hasPreferredX = false
	e.notify()
}

// affectedRange widens [start,end) out to paragraph boundaries so
// ReplaceRange only rebuilds paragraphs actually touched by the edit.
func (e *Editor) affectedRange(start, end int) (int, int) {
	lo, hi := start, end
	for _, p := range e.paragraphs {
		pEnd := p.TextStartOffset + len(p.Text)
		if p.TextStartOffset <= start && start < pEnd {
			lo = p.TextStartOffset
		}
		if p.TextStartOffset < end && end <= pEnd {
			hi = pEnd
		}
	}
	return lo, hi
}

// InsertCodepoint inserts a single codepoint at the caret, overwriting any
// selection, in terms of ReplaceRange per spec.md §4.9.
func (e *Editor) InsertCodepoint(r rune) {
	e.ReplaceRange(e.caretStart, e.caretEnd, []rune{r})
}

// PasteUTF8 decodes s and inserts it at the caret in terms of ReplaceRange.
func (e *Editor) PasteUTF8(s []byte) {
	e.ReplaceRange(e.caretStart, e.caretEnd, utext.Decode(string(s)))
}

// PasteUTF32 inserts text at the caret in terms of ReplaceRange.
func (e *Editor) PasteUTF32(text []rune) {
	e.ReplaceRange(e.caretStart, e.caretEnd, text)
}

// Cut removes the current selection, returning the removed text, in terms
// of ReplaceRange.
func (e *Editor) Cut() []rune {
	if e.caretStart == e.caretEnd {
		return nil
	}
	lo, hi := e.caretStart, e.caretEnd
	if lo > hi {
		lo, hi = hi, lo
	}
	cut := e.buf.slice(lo, hi)
	e.ReplaceRange(lo, hi, nil)
	return cut
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rebuildParagraphs recomputes the Paragraph array for [lo, hi) against the
// current buffer contents, splicing the result into e.paragraphs and
// leaving untouched paragraphs (and their Version counters) alone.
func (e *Editor) rebuildParagraphs(lo, hi int) {
	// widen lo/hi to paragraph-separator boundaries in the full buffer so
	// a mid-paragraph edit re-splits correctly.
	text := e.buf.runes()
	lo = paragraphStartBefore(text, lo)
	hi = paragraphEndAfter(text, hi)

	firstAffected, lastAffected := 0, -1
	for i, p := range e.paragraphs {
		pEnd := p.TextStartOffset + len(p.Text)
		if pEnd <= lo {
			firstAffected = i + 1
		}
		if p.TextStartOffset < hi {
			lastAffected = i
		}
	}
	if lastAffected < firstAffected-1 {
		lastAffected = firstAffected - 1
	}

	version := 0
	for i := firstAffected; i <= lastAffected; i++ {
		if e.paragraphs[i].Version > version {
			version = e.paragraphs[i].Version
		}
	}
	newParas := splitParagraphs(text[lo:hi], lo)
	for i := range newParas {
		newParas[i].Version = version + 1
		e.layoutParagraph(&newParas[i])
	}

	merged := make([]Paragraph, 0, len(e.paragraphs)-max(0, lastAffected-firstAffected+1)+len(newParas))
	merged = append(merged, e.paragraphs[:firstAffected]...)
	merged = append(merged, newParas...)
	if lastAffected+1 <= len(e.paragraphs) {
		merged = append(merged, e.paragraphs[lastAffected+1:]...)
	}

	// Recompute text_start_offset for every paragraph after the edit point
	// (offsets downstream always shift) and re-stack Y.
	offset := 0
	if firstAffected > 0 {
		offset = merged[firstAffected-1].TextStartOffset + len(merged[firstAffected-1].Text)
	}
	var y fx.Int26_6
	if firstAffected > 0 {
		y = merged[firstAffected-1].Y
		for _, l := range merged[firstAffected-1].Lines {
			y += l.Descender - l.Ascender
		}
	}
	for i := firstAffected; i < len(merged); i++ {
		merged[i].TextStartOffset = offset
		offset += len(merged[i].Text)
		merged[i].Y = y
		for _, l := range merged[i].Lines {
			y += l.Descender - l.Ascender
		}
	}
	e.paragraphs = merged
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// paragraphStartBefore walks backward from offset to the start of the
// paragraph it falls within (immediately after the nearest preceding
// separator, or 0).
func paragraphStartBefore(text []rune, offset int) int {
	for i := offset - 1; i >= 0; i-- {
		if ucd.IsParagraphSeparator(text[i]) {
			return i + 1
		}
	}
	return 0
}

// paragraphEndAfter walks forward from offset to the end of the paragraph
// it falls within (immediately after the next separator, or end of text).
func paragraphEndAfter(text []rune, offset int) int {
	for i := offset; i < len(text); i++ {
		if ucd.IsParagraphSeparator(text[i]) {
			return i + 1
		}
	}
	return len(text)
}

// splitParagraphs splits text into paragraphs at paragraph separators,
// boundaries sitting immediately after the separator codepoint, per
// spec.md §3's Paragraph invariant.
func splitParagraphs(text []rune, baseOffset int) []Paragraph {
	if len(text) == 0 {
		return []Paragraph{{Text: nil, TextStartOffset: baseOffset}}
	}
	var out []Paragraph
	start := 0
	for i := 0; i < len(text); i++ {
		if ucd.IsParagraphSeparator(text[i]) {
			out = append(out, Paragraph{Text: text[start : i+1], TextStartOffset: baseOffset + start})
			start = i + 1
		}
	}
	if start < len(text) || len(out) == 0 {
		out = append(out, Paragraph{Text: text[start:], TextStartOffset: baseOffset + start})
	}
	return out
}

// layoutParagraph runs the full itemize -> shape -> break -> assemble
// pipeline for one paragraph and builds its caret.Index, mirroring
// Editor.layoutText's call into the shaping package in the teacher. A
// layoutcache.Cache keyed on (params, text, spans) sits in front of the
// pipeline per spec.md §4.8, so a paragraph whose text and attributes
// haven't changed since its last rebuild skips straight to reusing its
// previous Lines.
func (e *Editor) layoutParagraph(p *Paragraph) {
	p.Lines = nil
	if len(p.Text) == 0 {
		line := layout.AssembleLine(p.Text, nil, fx.LTR, e.params.LayoutWidth, e.params.Align, e.params.Baseline, e.params.Spans)
		p.Lines = []layout.Line{line}
		p.Index = caret.Build(p.Text, p.Lines)
		return
	}

	key := e.cacheHasher.Hash(paramsFingerprint(e.params), p.Text, spansFingerprint(e.params.Spans))
	if lines, ok := e.layoutCache.Get(key); ok {
		p.Lines = lines
		p.Index = caret.Build(p.Text, p.Lines)
		return
	}

	e.runScratch.Push()
	e.glyphScratch.Push()
	e.breakScratch.Push()
	defer e.runScratch.Pop()
	defer e.glyphScratch.Pop()
	defer e.breakScratch.Pop()

	runs, err := itemize.Itemize(p.Text, e.params.Spans, e.params.Base, e.params.Collection, e.params.Fallback, &e.runScratch)
	if err != nil {
		return
	}
	var glyphRuns []layout.Run
	for _, r := range runs {
		face, ok := e.params.Collection.Face(r.Font)
		if !ok {
			continue
		}
		glyphs := e.shaper.Shape(p.Text, r, face, e.params.Size, e.params.Lang, e.params.Spans)
		glyphRuns = append(glyphRuns, glyphsToRun(r, glyphs))
	}
	classes := linebreak.Opportunities(p.Text)
	mode := e.params.WrapMode
	if e.params.SingleLine {
		mode = linebreak.WrapNone
	}
	var allGlyphs []shaping.Glyph
	for _, r := range glyphRuns {
		allGlyphs = e.glyphScratch.AppendSlice(r.Glyphs)
	}
	breaks := linebreak.Wrap(p.Text, allGlyphs, classes, e.params.LayoutWidth, mode, &e.breakScratch)
	lineStart := 0
	for _, br := range breaks {
		lineRuns := sliceRuns(glyphRuns, lineStart, br.TextEnd)
		line := layout.AssembleLine(p.Text, lineRuns, bidiDominant(e.params.Base, p.Text), e.params.LayoutWidth, e.params.Align, e.params.Baseline, e.params.Spans)
		p.Lines = append(p.Lines, line)
		lineStart = br.TextEnd
	}
	if len(p.Lines) == 0 {
		p.Lines = []layout.Line{layout.AssembleLine(p.Text, glyphRuns, bidiDominant(e.params.Base, p.Text), e.params.LayoutWidth, e.params.Align, e.params.Baseline, e.params.Spans)}
	}
	p.Index = caret.Build(p.Text, p.Lines)
	e.layoutCache.Put(key, p.Lines)
}

// paramsFingerprint serializes the Params fields that affect a layout's
// shape into a stable byte sequence, the way layoutcache.Hasher.Hash expects
// (Collection and Fallback are excluded: an Editor uses one fixed pair of
// these for its lifetime, so they never vary between cache keys built for
// the same Editor).
func paramsFingerprint(p Params) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint8(p.Base))
	binary.Write(&buf, binary.LittleEndian, int32(p.Size))
	buf.WriteString(p.Lang)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, int32(p.LayoutWidth))
	binary.Write(&buf, binary.LittleEndian, uint8(p.Align))
	binary.Write(&buf, binary.LittleEndian, uint8(p.Baseline))
	binary.Write(&buf, binary.LittleEndian, uint8(p.WrapMode))
	binary.Write(&buf, binary.LittleEndian, p.SingleLine)
	buf.WriteString(string(p.Font.Typeface))
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, int32(p.Font.Style))
	binary.Write(&buf, binary.LittleEndian, int32(p.Font.Weight))
	binary.Write(&buf, binary.LittleEndian, int32(p.Font.Stretch))
	return buf.Bytes()
}

// spansFingerprint serializes spans' fields in order into a stable byte
// sequence, matching paramsFingerprint's approach.
func spansFingerprint(spans attrs.Spans) []byte {
	var buf bytes.Buffer
	for _, s := range spans {
		binary.Write(&buf, binary.LittleEndian, int32(s.Start))
		binary.Write(&buf, binary.LittleEndian, int32(s.End))
		buf.WriteString(string(s.Family))
		buf.WriteByte(0)
		binary.Write(&buf, binary.LittleEndian, int32(s.Style))
		binary.Write(&buf, binary.LittleEndian, int32(s.Weight))
		binary.Write(&buf, binary.LittleEndian, int32(s.Stretch))
		binary.Write(&buf, binary.LittleEndian, int32(s.Size))
		binary.Write(&buf, binary.LittleEndian, int32(s.LetterSpacing))
		binary.Write(&buf, binary.LittleEndian, int32(s.WordSpacing))
		binary.Write(&buf, binary.LittleEndian, int32(s.LineHeight))
		binary.Write(&buf, binary.LittleEndian, s.FillColor)
		binary.Write(&buf, binary.LittleEndian, uint8(s.Decoration.Position))
		binary.Write(&buf, binary.LittleEndian, uint8(s.Decoration.Style))
		binary.Write(&buf, binary.LittleEndian, int32(s.Decoration.Thickness))
		binary.Write(&buf, binary.LittleEndian, int32(s.Decoration.Offset))
		binary.Write(&buf, binary.LittleEndian, s.Decoration.Color)
		for _, f := range s.Features {
			buf.WriteString(f)
			buf.WriteByte(0)
		}
		buf.WriteByte(0)
		binary.Write(&buf, binary.LittleEndian, uint8(s.ObjectAlign))
		binary.Write(&buf, binary.LittleEndian, int32(s.ObjectPad))
		buf.WriteString(s.LangOverride)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func bidiDominant(base bidi.BaseDirection, text []rune) fx.Direction {
	para, err := bidi.Resolve(text, base)
	if err != nil || len(para.Runs()) == 0 {
		return fx.LTR
	}
	return para.Runs()[0].Direction
}

func glyphsToRun(r itemize.Run, glyphs []shaping.Glyph) layout.Run {
	lr := layout.Run{
		Kind:      layout.RunText,
		Glyphs:    glyphs,
		Direction: r.Direction,
		TextStart: r.Start,
		TextEnd:   r.End,
		SpanIndex: r.SpanIndex,
	}
	for _, g := range glyphs {
		lr.Advance += g.XAdvance
		if -g.Bounds.Min.Y > lr.Ascent {
			lr.Ascent = -g.Bounds.Min.Y
		}
		if g.Bounds.Max.Y > lr.Descent {
			lr.Descent = g.Bounds.Max.Y
		}
	}
	return lr
}

// sliceRuns returns the sub-range of runs covering [lo, hi), clipping any
// run that straddles a line-break boundary down to just the glyphs whose
// text range falls inside [lo, hi) — otherwise a run spanning a wrap point
// would be duplicated whole onto both of the lines it straddles.
func sliceRuns(runs []layout.Run, lo, hi int) []layout.Run {
	var out []layout.Run
	for _, r := range runs {
		if r.TextEnd <= lo || r.TextStart >= hi {
			continue
		}
		if r.TextStart >= lo && r.TextEnd <= hi {
			out = append(out, r)
			continue
		}
		out = append(out, clipRun(r, lo, hi))
	}
	return out
}

// clipRun narrows r to the glyphs whose TextRangeLo falls in [lo, hi),
// recomputing Advance/Ascent/Descent from the retained glyphs the same way
// glyphsToRun derives them from a full glyph slice.
func clipRun(r layout.Run, lo, hi int) layout.Run {
	start, end := r.TextStart, r.TextEnd
	if start < lo {
		start = lo
	}
	if end > hi {
		end = hi
	}
	clipped := layout.Run{
		Kind:      r.Kind,
		Direction: r.Direction,
		TextStart: start,
		TextEnd:   end,
		SpanIndex: r.SpanIndex,
		Width:     r.Width,
		Height:    r.Height,
		ObjectAlign: r.ObjectAlign,
	}
	for _, g := range r.Glyphs {
		if g.TextRangeLo < lo || g.TextRangeLo >= hi {
			continue
		}
		clipped.Glyphs = append(clipped.Glyphs, g)
		clipped.Advance += g.XAdvance
		if -g.Bounds.Min.Y > clipped.Ascent {
			clipped.Ascent = -g.Bounds.Min.Y
		}
		if g.Bounds.Max.Y > clipped.Descent {
			clipped.Descent = g.Bounds.Max.Y
		}
	}
	return clipped
}

func (e *Editor) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}
