// SPDX-License-Identifier: Unlicense OR MIT

// Package shaping invokes the OpenType shaper for each itemized run and
// applies letter/word-spacing adjustments to the resulting advances
// (spec.md §4.4). It adapts go-text/typesetting/shaping.HarfbuzzShaper the
// way shaperImpl.shapeText does in gotext.go, trading shaperImpl's
// whole-paragraph Input splitting for itemize.Run-at-a-time invocation
// since bidi/script/font splitting already happened upstream.
package shaping

import (
	"github.com/go-text/typesetting/di"
	gotextfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/opentype/loader"
	gotext "github.com/go-text/typesetting/shaping"

	"github.com/inkwell/glyphflow/attrs"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/itemize"
	"github.com/inkwell/glyphflow/ucd"
)

// Glyph is one shaped glyph, matching spec.md §3's shaped-glyph tuple. It
// mirrors the teacher's internal `glyph` struct in gotext.go field-for-field
// (id/clusterIndex/runeCount/glyphCount/advances/offsets/bounds), renamed to
// the spec's vocabulary and exported since this package's whole purpose is
// to hand these to the layout assembler.
type Glyph struct {
	GlyphID       gotextfont.GID
	ClusterIndex  int
	GlyphCount    int
	RuneCount     int
	XAdvance      fx.Int26_6
	YAdvance      fx.Int26_6
	XOffset       fx.Int26_6
	YOffset       fx.Int26_6
	Bounds        fx.Rectangle
	TextRangeLo   int // codepoint offset, inclusive
	TextRangeHi   int // codepoint offset, exclusive
	AttrSpanIndex int
}

// Shaper wraps a HarfbuzzShaper instance, reused across calls the way
// shaperImpl embeds one long-lived shaping.HarfbuzzShaper rather than
// constructing one per call.
type Shaper struct {
	hb gotext.HarfbuzzShaper
}

// Shape invokes the OpenType shaper for run and returns its glyphs with
// letter/word spacing already applied. face is the run's resolved font face
// (itemize.Run.Font already resolved via the embedder's font collection);
// spans supplies the attribute (letter/word spacing, features) governing
// this run.
func (s *Shaper) Shape(text []rune, run itemize.Run, face gotextfont.Face, size fx.Int26_6, lang string, spans attrs.Spans) []Glyph {
	input := gotext.Input{
		Text:      text,
		RunStart:  run.Start,
		RunEnd:    run.End,
		Direction: toDI(run.Direction),
		Face:      face,
		Size:      size,
		Script:    ucd.Script(text[run.Start]),
		Language:  language.NewLanguage(lang),
	}
	if span, ok := spans.At(run.Start); ok {
		input.FontFeatures = toFeatures(span.Features)
	}

	out := s.hb.Shape(input)
	glyphs := make([]Glyph, 0, len(out.Glyphs))
	for _, g := range out.Glyphs {
		var bounds fx.Rectangle
		bounds.Min.X = g.XBearing
		bounds.Min.Y = -g.YBearing
		bounds.Max = bounds.Min.Add(fx.Point{X: g.Width, Y: -g.Height})
		glyphs = append(glyphs, Glyph{
			GlyphID:      g.GlyphID,
			ClusterIndex: g.ClusterIndex,
			GlyphCount:   g.GlyphCount,
			RuneCount:    g.RuneCount,
			XAdvance:     g.XAdvance,
			YAdvance:     g.YAdvance,
			XOffset:      g.XOffset,
			YOffset:      g.YOffset,
			Bounds:       bounds,
			TextRangeLo:  g.ClusterIndex,
			TextRangeHi:  g.ClusterIndex + g.RuneCount,
		})
	}
	applySpacing(text, glyphs, run, spans)
	return glyphs
}

// applySpacing adjusts XAdvance for letter spacing (every cluster) and word
// spacing (clusters whose first codepoint is a word separator), matching
// spec.md §4.4's "word spacing applied only at codepoints classified as
// word separators" rule. The teacher has no equivalent: gio's Parameters
// never expose letter/word spacing, so this has no line-for-line analogue
// in gotext.go and is written directly from spec prose, in the same
// post-shape-adjust-advances style toGioGlyphs already uses for bounds.
func applySpacing(text []rune, glyphs []Glyph, run itemize.Run, spans attrs.Spans) {
	span, ok := spans.At(run.Start)
	if !ok || (span.LetterSpacing == 0 && span.WordSpacing == 0) {
		return
	}
	for i := range glyphs {
		g := &glyphs[i]
		if span.LetterSpacing != 0 {
			g.XAdvance += span.LetterSpacing
		}
		if span.WordSpacing != 0 && g.TextRangeLo < len(text) && ucd.IsWhitespace(text[g.TextRangeLo]) {
			g.XAdvance += span.WordSpacing
		}
	}
}

func toDI(d fx.Direction) di.Direction {
	if d == fx.RTL {
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

func toFeatures(tags []string) []gotext.FontFeature {
	if len(tags) == 0 {
		return nil
	}
	out := make([]gotext.FontFeature, 0, len(tags))
	for _, t := range tags {
		if len(t) != 4 {
			continue
		}
		out = append(out, gotext.FontFeature{Tag: loader.MustNewTag(t), Value: 1})
	}
	return out
}
