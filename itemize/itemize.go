// SPDX-License-Identifier: Unlicense OR MIT

// Package itemize partitions a paragraph into the maximal runs spec.md §4.3
// requires: uniform in bidi level, script, attribute span, and resolved
// font, with a fallback-and-retry loop for codepoints no matched font
// covers. It generalizes shaperImpl's splitBidi -> splitByFaces ->
// splitByScript pipeline in gotext.go from "one shaping.Input for the whole
// document" to "one Run per (bidi run, attribute span, script, font)
// combination", since this package runs before a shaper.Input exists at
// all. Font coverage is probed per rune across every matched candidate the
// way fixedFontmap.ResolveFace does in the pack's own
// shaping.SplitByFontGlyphs, rather than against one face at a time, so a
// sub-range truly uncovered by any candidate actually reaches fallback.
package itemize

import (
	gotextfont "github.com/go-text/typesetting/font"

	"github.com/inkwell/glyphflow/arena"
	"github.com/inkwell/glyphflow/attrs"
	"github.com/inkwell/glyphflow/bidi"
	"github.com/inkwell/glyphflow/fontapi"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/ucd"
)

// Run is a maximal sub-sequence of a paragraph uniform in direction,
// script, attribute span, and resolved font.
type Run struct {
	Start, End int // codepoints, End exclusive
	Direction  fx.Direction
	Script     string // BCP-47/ISO-15924-ish short name, see scriptName
	SpanIndex  int
	Font       fontapi.FontHandle
}

// Itemize splits text into Runs. spans supplies the attribute spans
// covering text (gaps use the document's implicit default span, SpanIndex
// -1). collection resolves each run's font; fallback is invoked, and the
// run retried, when the resolved font lacks coverage for part of the run.
//
// scratch, if non-nil, draws the accumulator backing the returned slice from
// an arena.TypedArena instead of starting from nil: the caller brackets the
// call with Push/Pop (typically spanning the whole paragraph rebuild, since
// the editor consumes the result before the next layout touches the arena).
// A nil scratch allocates normally, for callers (tests, one-off callers)
// that have no arena to share.
func Itemize(text []rune, spans attrs.Spans, base bidi.BaseDirection, collection fontapi.Collection, fallback fontapi.FallbackFunc, scratch *arena.TypedArena[Run]) ([]Run, error) {
	para, err := bidi.Resolve(text, base)
	if err != nil {
		return nil, err
	}

	var runs []Run
	appendRuns := func(rs []Run) {
		if scratch != nil {
			runs = scratch.AppendSlice(rs)
			return
		}
		runs = append(runs, rs...)
	}
	for _, bidiRun := range para.Runs() {
		for _, spanRun := range splitBySpan(bidiRun.Start, bidiRun.End, spans) {
			for _, scriptRun := range splitByScript(text, spanRun.start, spanRun.end) {
				appendRuns(resolveFont(text, scriptRun.start, scriptRun.end,
					bidiRun.Direction, scriptRun.script, spanRun.index, spans, collection, fallback))
			}
		}
	}
	return runs, nil
}

type spanBound struct {
	start, end, index int
}

// splitBySpan cuts [start,end) at every attribute-span boundary that falls
// inside it, tagging each piece with the covering span's index (or -1 for a
// gap).
func splitBySpan(start, end int, spans attrs.Spans) []spanBound {
	var out []spanBound
	pos := start
	for pos < end {
		idx := -1
		segEnd := end
		for i, s := range spans {
			if s.Start <= pos && pos < s.End {
				idx = i
				if s.End < segEnd {
					segEnd = s.End
				}
				break
			}
			if s.Start > pos && s.Start < segEnd {
				segEnd = s.Start
			}
		}
		out = append(out, spanBound{start: pos, end: segEnd, index: idx})
		pos = segEnd
	}
	return out
}

type scriptBound struct {
	start, end int
	script     string
}

// emojiScript is the script tag forced on emoji-presentation runs, per
// spec.md §4.3 ("emoji presentation selectors force the emoji script").
// Zsye is the conventional ISO-15924-ish short name used for this purpose
// (cf. CLDR's "Emoji" pseudo-script).
const emojiScript = "Zsye"

// isForcedEmoji reports whether r is ordinarily a common/inherited rune
// that spec.md carves out as an exception: a default-emoji-presentation
// codepoint or the U+FE0F selector that requests emoji presentation. Such
// runes do not adopt the surrounding script the way punctuation or digits
// do; they start or extend an emoji run instead.
func isForcedEmoji(r rune) bool {
	return ucd.IsEmoji(r) || ucd.IsEmojiPresentationSelector(r)
}

// splitByScript divides [start,end) on script boundaries, the same
// first-non-common-rune-wins algorithm splitByScript uses in gotext.go,
// generalized to operate on a sub-range instead of a whole shaping.Input,
// and extended with spec.md §4.3's emoji-presentation carve-out: runes for
// which isForcedEmoji holds always force (and extend) an emojiScript run
// rather than being absorbed into whatever script surrounds them.
func splitByScript(text []rune, start, end int) []scriptBound {
	if start >= end {
		return nil
	}
	firstNonCommon := start
	for i := start; i < end; i++ {
		if isForcedEmoji(text[i]) || !ucd.IsCommonScript(text[i]) {
			firstNonCommon = i
			break
		}
	}
	current := scriptBound{start: start, script: scriptName(text[firstNonCommon])}
	var out []scriptBound
	for i := firstNonCommon + 1; i < end; i++ {
		if !isForcedEmoji(text[i]) && ucd.IsCommonScript(text[i]) {
			continue
		}
		s := scriptName(text[i])
		if s == current.script {
			continue
		}
		current.end = i
		out = append(out, current)
		current = scriptBound{start: i, script: s}
	}
	current.end = end
	out = append(out, current)
	return out
}

func scriptName(r rune) string {
	if isForcedEmoji(r) {
		return emojiScript
	}
	return ucd.Script(r).String()
}

// candidateFace pairs a matched font handle with its resolved shaping face,
// so coverage can be probed per rune via NominalGlyph.
type candidateFace struct {
	handle fontapi.FontHandle
	face   gotextfont.Face
}

// resolveFont resolves [start,end)'s font via collection.Match, then probes
// every candidate's actual glyph coverage per rune (face.NominalGlyph, the
// same coverage check the pack's own fixedFontmap.ResolveFace performs) and
// retries fallback for any sub-range no candidate covers. Checking coverage
// across all candidates together — rather than one face at a time — is what
// makes the retry loop reachable: a single-face probe always "covers" every
// rune by falling back to itself, so uncovered text never surfaces.
func resolveFont(text []rune, start, end int, dir fx.Direction, script string, spanIdx int, spans attrs.Spans, collection fontapi.Collection, fallback fontapi.FallbackFunc) []Run {
	family, style, weight, stretch, lang := "", fontapi.Regular, fontapi.Normal, fontapi.StretchNormal, ""
	if spanIdx >= 0 && spanIdx < len(spans) {
		s := spans[spanIdx]
		family, style, weight, stretch, lang = string(s.Family), s.Style, s.Weight, s.Stretch, s.LangOverride
	}

	handles := collection.Match(script, lang, fontapi.Typeface(family), style, weight, stretch)
	var candidates []candidateFace
	for _, h := range handles {
		if face, ok := collection.Face(h); ok {
			candidates = append(candidates, candidateFace{handle: h, face: face})
		}
	}
	if len(candidates) == 0 {
		if fallback != nil {
			if h, ok := fallback(lang, script, family); ok {
				if face, ok := collection.Face(h); ok {
					candidates = []candidateFace{{handle: h, face: face}}
				} else {
					return []Run{{Start: start, End: end, Direction: dir, Script: script, SpanIndex: spanIdx, Font: h}}
				}
			}
		}
	}
	if len(candidates) == 0 {
		// No usable font at all: emit the whole range against the zero
		// handle. No .notdef glyphs are substituted for it: the editor skips
		// runs whose handle resolves to no face, so the range gets no glyphs.
		return []Run{{Start: start, End: end, Direction: dir, Script: script, SpanIndex: spanIdx}}
	}

	var out []Run
	segStart := start
	segCandidate := -1 // index into candidates, or -1 for "no coverage"
	flush := func(segEnd int) {
		if segEnd <= segStart {
			return
		}
		if segCandidate >= 0 {
			out = append(out, Run{Start: segStart, End: segEnd, Direction: dir, Script: script, SpanIndex: spanIdx, Font: candidates[segCandidate].handle})
			return
		}
		// No candidate covers this sub-range: retry through fallback.
		if fallback != nil {
			if h2, ok := fallback(lang, script, family); ok {
				out = append(out, Run{Start: segStart, End: segEnd, Direction: dir, Script: script, SpanIndex: spanIdx, Font: h2})
				return
			}
		}
		out = append(out, Run{Start: segStart, End: segEnd, Direction: dir, Script: script, SpanIndex: spanIdx, Font: candidates[0].handle})
	}
	for i := start; i < end; i++ {
		covering := -1
		for ci, c := range candidates {
			if _, ok := c.face.NominalGlyph(text[i]); ok {
				covering = ci
				break
			}
		}
		if covering != segCandidate {
			flush(i)
			segStart = i
			segCandidate = covering
		}
	}
	flush(end)
	return out
}
