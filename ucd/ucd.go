// SPDX-License-Identifier: Unlicense OR MIT

// Package ucd exposes the per-codepoint Unicode properties the rest of the
// pipeline classifies text by: script (for itemization), grapheme- and
// word-break class (for caret snapping and editor word motion), and the
// small set of emoji/ZWJ/variation-selector/regional-indicator predicates
// spec.md §4.1 and §4.9 need for grapheme-cluster and backspace handling.
package ucd

import (
	"bufio"
	"strings"
	"unicode"

	"github.com/go-text/typesetting/language"
	"github.com/npillmayer/uax/grapheme"
	"github.com/npillmayer/uax/segment"
	"github.com/npillmayer/uax/uax29"
)

func init() {
	// One-time table setup, same call site as
	// npillmayer-cords/styled/formatter/fmt_test.go.
	grapheme.SetupGraphemeClasses()
}

// Script returns the Unicode script of r, following the same
// language.LookupScript call gotext.go's splitByScript makes. language.Common
// (punctuation, digits, whitespace) is returned as-is; callers that want to
// "inherit" the script of a neighboring run do that merge themselves, the
// way splitByScript does.
func Script(r rune) language.Script {
	return language.LookupScript(r)
}

// IsCommonScript reports whether r's script does not constrain itemization
// (digits, punctuation, whitespace): such runes attach to whichever script
// run they're embedded in rather than starting a new one.
func IsCommonScript(r rune) bool {
	return language.LookupScript(r) == language.Common
}

// GraphemeBreaker returns a fresh segment.UnicodeBreaker that finds
// extended-grapheme-cluster boundaries, for driving a segment.Segmenter the
// way uax14.NewLineWrap() drives line breaking in firstFit.
func GraphemeBreaker() segment.UnicodeBreaker {
	return grapheme.NewBreaker()
}

// WordBreaker returns a fresh segment.UnicodeBreaker that finds UAX #29 word
// boundaries, for editor word motion (ctrl+arrow, double-click).
func WordBreaker() segment.UnicodeBreaker {
	return uax29.NewWordBreaker(0)
}

// GraphemeClusters splits s into extended grapheme clusters using the same
// segmenter-driven pattern firstFit uses for line fragments, substituting a
// grapheme breaker for the line breaker.
func GraphemeClusters(s string) []string {
	seg := segment.NewSegmenter(GraphemeBreaker())
	seg.Init(bufio.NewReader(strings.NewReader(s)))
	var out []string
	for seg.Next() {
		out = append(out, string(seg.Bytes()))
	}
	return out
}

// The remaining predicates have no segmenter/breaker package in the
// retrieval pack: the grapheme/word/line breakers classify cluster
// boundaries, not the individual emoji-sequence roles spec.md §4.9's
// backspace state machine keys off (ZWJ, regional indicator, variation
// selector, tag characters, keycap base). Those are Unicode property
// predicates rather than boundary algorithms, so they're implemented
// directly against the codepoint ranges spec.md names; see DESIGN.md.

// IsWhitespace reports whether r is a Unicode whitespace codepoint.
func IsWhitespace(r rune) bool { return unicode.IsSpace(r) }

// IsControl reports whether r is a Unicode control codepoint.
func IsControl(r rune) bool { return unicode.IsControl(r) }

// IsParagraphSeparator reports whether r terminates a paragraph per spec.md
// §3: line feed, carriage return, NEL, and the Unicode paragraph/line
// separators. Vertical tab and form feed are deliberately excluded; they are
// not in spec.md's enumerated set and including them over-splits paragraphs.
func IsParagraphSeparator(r rune) bool {
	switch r {
	case '\n', '\r', '', ' ', ' ':
		return true
	}
	return false
}

// IsZWJ reports whether r is the zero-width joiner, U+200D.
func IsZWJ(r rune) bool { return r == '‍' }

// IsVariationSelector reports whether r is a variation selector (text/emoji
// presentation, VS1-VS16, or an IVS specifier in the VS17-VS256 supplement).
func IsVariationSelector(r rune) bool {
	return (r >= '︀' && r <= '️') || (r >= '\U000E0100' && r <= '\U000E01EF')
}

// IsRegionalIndicator reports whether r is one of the 26 regional indicator
// symbols (U+1F1E6-U+1F1FF) used to compose flag emoji in pairs.
func IsRegionalIndicator(r rune) bool {
	return r >= '\U0001F1E6' && r <= '\U0001F1FF'
}

// IsEmojiModifier reports whether r is a Fitzpatrick skin-tone modifier
// (U+1F3FB-U+1F3FF).
func IsEmojiModifier(r rune) bool {
	return r >= '\U0001F3FB' && r <= '\U0001F3FF'
}

// IsEmojiModifierBase reports whether r is one of the emoji base characters
// that accepts a following skin-tone modifier. The set is large and
// maintained by Unicode as Emoji_Modifier_Base; this covers the common
// person/body/hand emoji ranges spec.md's boundary scenarios exercise.
func IsEmojiModifierBase(r rune) bool {
	switch {
	case r >= '\U0001F385' && r <= '\U0001F387': // Santa, etc.
	case r >= '\U0001F3C2' && r <= '\U0001F3C4':
	case r >= '\U0001F3C7' && r <= '\U0001F3CC':
	case r >= '\U0001F442' && r <= '\U0001F4AA':
	case r >= '\U0001F574' && r <= '\U0001F57A':
	case r >= '\U0001F590' && r <= '\U0001F596':
	case r >= '\U0001F645' && r <= '\U0001F64F':
	case r >= '\U0001F6A3' && r <= '\U0001F6B4':
	case r >= '\U0001F6C0' && r <= '\U0001F6CC':
	case r >= '\U0001F90F' && r <= '\U0001F9B9':
	case r >= '\U0001F9BB' && r <= '\U0001F9CF':
	case r >= '\U0001F9D1' && r <= '\U0001F9DF':
	default:
		return false
	}
	return true
}

// IsTagSpecChar reports whether r is part of the Unicode tag-sequence block
// (U+E0001 and U+E0020-U+E007F) used to attach subdivision flags (e.g.
// England, Scotland) to a preceding regional-indicator-free emoji base.
func IsTagSpecChar(r rune) bool {
	return r == '\U000E0001' || (r >= '\U000E0020' && r <= '\U000E007F')
}

// IsKeycapBase reports whether r is a codepoint that combines with U+FE0F
// and U+20E3 to form a keycap sequence: the digits 0-9, '#', and '*'.
func IsKeycapBase(r rune) bool {
	switch r {
	case '#', '*':
		return true
	}
	return r >= '0' && r <= '9'
}

// IsCombiningMark reports whether r is a combining mark that attaches to a
// preceding base character for grapheme-cluster purposes.
func IsCombiningMark(r rune) bool {
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Me, r)
}

// IsEmojiPresentationSelector reports whether r is U+FE0F VARIATION
// SELECTOR-16, the codepoint that forces the preceding base character to
// render with emoji rather than text presentation.
func IsEmojiPresentationSelector(r rune) bool { return r == '️' }

// IsEmoji reports whether r is a codepoint with default emoji presentation:
// the symbol/pictograph and emoji-component blocks spec.md §4.3 requires
// itemization to recognize so a run of these (optionally followed by
// U+FE0F) forces the emoji script rather than inheriting its neighbor's,
// plus the predicates already defined above that are themselves always
// emoji (regional indicators, skin-tone modifiers, emoji modifier bases).
func IsEmoji(r rune) bool {
	switch {
	case IsRegionalIndicator(r), IsEmojiModifier(r), IsEmojiModifierBase(r):
		return true
	case r >= '\U0001F300' && r <= '\U0001FAFF': // misc symbols & pictographs through symbols & pictographs extended-A
		return true
	case r >= '☀' && r <= '➿': // misc symbols, dingbats
		return true
	case r == '‼' || r == '⁉': // double/exclamation question mark
		return true
	case r >= '⬀' && r <= '⯿': // misc symbols and arrows (includes star, arrows used as emoji)
		return true
	default:
		return false
	}
}
