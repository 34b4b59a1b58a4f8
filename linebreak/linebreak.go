// SPDX-License-Identifier: Unlicense OR MIT

// Package linebreak implements spec.md §4.5's two passes: a UAX #14
// break-opportunity classification pass, and a greedy wrapper that walks
// shaped glyphs consuming those opportunities. It is grounded on two
// sources: the segmenter-driven opportunities pass in
// npillmayer-cords/styled/formatter/format.go's firstFit (uax14 +
// segment), and the retreat-to-last-break greedy walk in the vendored
// shaping/wrapping.go (gotext's own line wrapper), simplified from that
// file's multi-level unused-break bookkeeping into the single-pass
// "classify, then walk" shape spec.md §4.5 describes.
package linebreak

import (
	"bufio"
	"strings"

	"github.com/npillmayer/uax/grapheme"
	"github.com/npillmayer/uax/segment"
	"github.com/npillmayer/uax/uax11"
	"github.com/npillmayer/uax/uax14"

	"github.com/inkwell/glyphflow/arena"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/shaping"
	"github.com/inkwell/glyphflow/ucd"
)

// BreakClass classifies the boundary immediately after a codepoint.
type BreakClass uint8

const (
	NoBreak BreakClass = iota
	AllowBreak
	MustBreak
)

// Mode selects the greedy wrapper's retreat behavior when no allow-break
// exists before the width limit is exceeded.
type Mode uint8

const (
	WrapNone     Mode = iota // never wrap; caller gets one long line
	WrapWord                 // overflow the line rather than break mid-word
	WrapWordChar             // fall back to the most recent grapheme boundary
)

// Opportunities classifies every codepoint boundary in text using the UAX
// #14 line-breaking algorithm, following the same
// segment.NewSegmenter(uax14.NewLineWrap()) + Init + Next/Bytes loop
// firstFit uses, substituted here for a position-classification pass rather
// than firstFit's direct accumulate-width pass (layoutWidth varies per call
// in this package's caller, so opportunities are computed once and reused).
func Opportunities(text []rune) []BreakClass {
	classes := make([]BreakClass, len(text))
	if len(text) == 0 {
		return classes
	}
	s := string(text)
	seg := segment.NewSegmenter(uax14.NewLineWrap())
	seg.Init(bufio.NewReader(strings.NewReader(s)))
	pos := 0
	for seg.Next() {
		frag := seg.Bytes()
		n := len([]rune(string(frag)))
		pos += n
		if pos-1 >= 0 && pos-1 < len(classes) {
			classes[pos-1] = AllowBreak
		}
	}
	for i, r := range text {
		if ucd.IsParagraphSeparator(r) {
			classes[i] = MustBreak
		}
	}
	if len(classes) > 0 {
		classes[len(classes)-1] = MustBreak
	}
	return classes
}

// EastAsianContext selects the width table a caller consults for
// ambiguous-width codepoints, per spec.md §4.5's "language-specific rules
// for East Asian scripts". Wired to *uax11.Context the way firstFit passes
// config.Context through to uax11.StringWidth.
type EastAsianContext = *uax11.Context

// LatinContext is the default width context when no language hint is
// available, matching format.go's fallback when config.Context is nil.
var LatinContext EastAsianContext = uax11.LatinContext

// StringWidth measures s's advance width under ctx, consulting East-Asian
// width tables for ambiguous codepoints. Grounded on firstFit's
// `uax11.StringWidth(gstr, context)` call.
func StringWidth(s string, ctx EastAsianContext) int {
	return uax11.StringWidth(grapheme.StringFromString(s), ctx)
}

// Break is one chosen line-break point, expressed as a glyph index (the
// line ends after this glyph, exclusive of any trailing whitespace already
// folded into TextRangeHi by the shaper).
type Break struct {
	GlyphEnd int // exclusive
	TextEnd  int // exclusive codepoint offset
}

// Wrap greedily walks glyphs (already in logical order, concatenated across
// a paragraph's itemized runs) and returns the chosen break points given
// layoutWidth and classes (aligned to the same codepoint stream the glyphs
// were shaped from). Mirrors wrapping.go's "retreat to last break, or
// overflow in word mode, or fall back to grapheme boundary in word_char
// mode" rule from spec.md §4.5.
//
// scratch, if non-nil, draws the returned slice's backing array from an
// arena.TypedArena the same way Itemize does, so a paragraph rebuild's break
// list reuses the previous rebuild's storage instead of allocating fresh.
func Wrap(text []rune, glyphs []shaping.Glyph, classes []BreakClass, layoutWidth fx.Int26_6, mode Mode, scratch *arena.TypedArena[Break]) []Break {
	if mode == WrapNone || len(glyphs) == 0 {
		single := Break{GlyphEnd: len(glyphs), TextEnd: textEnd(glyphs)}
		if scratch != nil {
			return scratch.Append(single)
		}
		return []Break{single}
	}

	var breaks []Break
	lineStart := 0
	var width fx.Int26_6
	lastAllow := -1 // glyph index of most recent allow-break

	flush := func(end int) {
		b := Break{GlyphEnd: end, TextEnd: glyphs[end-1].TextRangeHi}
		if scratch != nil {
			breaks = scratch.Append(b)
		} else {
			breaks = append(breaks, b)
		}
		lineStart = end
		width = 0
		lastAllow = -1
	}

	for i := 0; i < len(glyphs); i++ {
		g := glyphs[i]
		width += g.XAdvance
		must := false
		for cp := g.TextRangeLo; cp < g.TextRangeHi && cp < len(classes); cp++ {
			switch classes[cp] {
			case MustBreak:
				must = true
			case AllowBreak:
				if i+1 > lineStart {
					lastAllow = i
				}
			}
		}
		if must {
			flush(i + 1)
			continue
		}
		if width > layoutWidth && i > lineStart {
			if lastAllow >= lineStart {
				flush(lastAllow + 1)
				i = lineStart - 1
				width = 0
				continue
			}
			switch mode {
			case WrapWordChar:
				gb := lastGraphemeBoundary(text, glyphs, lineStart, i)
				if gb > lineStart {
					flush(gb)
					i = lineStart - 1
					width = 0
					continue
				}
				flush(i + 1)
			case WrapWord:
				// No break opportunity before the overflow: keep
				// accumulating until one appears (overflow allowed).
			}
		}
	}
	if lineStart < len(glyphs) {
		flush(len(glyphs))
	}
	return breaks
}

func textEnd(glyphs []shaping.Glyph) int {
	if len(glyphs) == 0 {
		return 0
	}
	return glyphs[len(glyphs)-1].TextRangeHi
}

// lastGraphemeBoundary finds the glyph index within (lineStart, upTo] whose
// text range starts on a grapheme-cluster boundary closest to upTo,
// supporting word_char mode's "break at the most recent grapheme boundary"
// rule.
func lastGraphemeBoundary(text []rune, glyphs []shaping.Glyph, lineStart, upTo int) int {
	if upTo <= lineStart {
		return lineStart
	}
	cut := glyphs[upTo].TextRangeLo
	clusters := ucd.GraphemeClusters(string(text[glyphs[lineStart].TextRangeLo:cut]))
	if len(clusters) <= 1 {
		return lineStart
	}
	// Drop the final cluster so the line ends before it.
	boundary := cut
	for _, c := range clusters[len(clusters)-1:] {
		boundary -= len([]rune(c))
	}
	for i := lineStart; i <= upTo; i++ {
		if glyphs[i].TextRangeLo >= boundary {
			return i
		}
	}
	return lineStart
}
