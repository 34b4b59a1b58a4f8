// SPDX-License-Identifier: Unlicense OR MIT

package editor

import "github.com/inkwell/glyphflow/ucd"

// combiningEnclosingKeycap is U+20E3, the combining mark that turns a
// preceding digit/#/* plus optional VS16 into a keycap emoji sequence.
const combiningEnclosingKeycap = '⃣'

// Backspace deletes one "perceived character" backward from the caret (or
// the selection, if any), running the emoji/ZWJ/regional-indicator/keycap
// state machine spec.md §4.9 names when there is no selection. There is no
// teacher or original_source analogue for this state machine (gio's
// Editor.deleteWord only ever deletes whole words or single runes); it is
// built directly from spec.md §4.9's table, which backs up over a fixed
// grammar of trailing codepoints (VS, ZWJ-emoji pairs, tag sequences,
// regional-indicator pairs, keycaps) rather than running a general
// grapheme-break algorithm, since those are exactly the cases the Unicode
// default grapheme-cluster boundary under-deletes or over-deletes for.
func (e *Editor) Backspace() {
	if e.caretStart != e.caretEnd {
		e.Cut()
		return
	}
	text := e.buf.runes()
	n := backspaceCount(text, e.caretEnd)
	if n == 0 {
		return
	}
	e.ReplaceRange(e.caretEnd-n, e.caretEnd, nil)
}

// backspaceCount returns how many codepoints immediately preceding offset
// constitute one perceived character.
func backspaceCount(text []rune, offset int) int {
	if offset == 0 {
		return 0
	}
	i := offset - 1 // last codepoint, always deleted

	switch {
	case text[i] == '\n' && i > 0 && text[i-1] == '\r':
		// LF triggered by preceding CR: extend by one to consume the CRLF
		// pair together.
		return 2

	case ucd.IsRegionalIndicator(text[i]):
		return regionalIndicatorCount(text, i)

	case text[i] == combiningEnclosingKeycap:
		return 1 + backUpOverOptionalVS(text, i-1) + backUpOverKeycapBase(text, i-1)

	case ucd.IsEmojiModifier(text[i]):
		return 1 + backUpOverOptionalVS(text, i-1) + backUpOverEmojiModifierBase(text, i-1)

	case ucd.IsVariationSelector(text[i]):
		// BEFORE_VS: if followed (i.e. preceded, scanning backward) by an
		// emoji base, back up over it too; otherwise it's a standalone
		// combining-mark style deletion of just the selector.
		if i > 0 && (ucd.IsEmoji(text[i-1]) || ucd.IsEmojiModifierBase(text[i-1])) {
			return 2
		}
		return 1

	default:
		return 1 + zwjChainCount(text, i-1)
	}
}

// regionalIndicatorCount implements the ODD/EVEN RIS toggle: walk backward
// over the run of regional indicators ending at i; an even-length run
// deletes its last pair together, an odd-length run deletes only the
// trailing singleton.
func regionalIndicatorCount(text []rune, i int) int {
	n := 0
	j := i
	for j >= 0 && ucd.IsRegionalIndicator(text[j]) {
		n++
		j--
	}
	if n%2 == 0 {
		return 2
	}
	return 1
}

func backUpOverOptionalVS(text []rune, i int) int {
	if i >= 0 && ucd.IsVariationSelector(text[i]) {
		return 1
	}
	return 0
}

func backUpOverKeycapBase(text []rune, i int) int {
	if i < 0 {
		return 0
	}
	if ucd.IsVariationSelector(text[i]) {
		i--
	}
	if i >= 0 && ucd.IsKeycapBase(text[i]) {
		return 1
	}
	return 0
}

func backUpOverEmojiModifierBase(text []rune, i int) int {
	if i < 0 {
		return 0
	}
	if ucd.IsVariationSelector(text[i]) {
		i--
	}
	if i >= 0 && ucd.IsEmojiModifierBase(text[i]) {
		return 1
	}
	return 0
}

// zwjChainCount walks backward from i (the codepoint preceding the
// already-counted trailing emoji) consuming ZWJ-joined emoji links: each
// link is a ZWJ, an optional variation selector, and one base codepoint.
// If i is a tag character, only the run of tag characters ending at i is
// counted and the ZWJ chain is not walked.
func zwjChainCount(text []rune, i int) int {
	if i >= 0 && ucd.IsTagSpecChar(text[i]) {
		n := 0
		for i >= 0 && ucd.IsTagSpecChar(text[i]) {
			n++
			i--
		}
		return n // IN_TAG_SEQUENCE: consume tag_spec chars; base stays.
	}
	count := 0
	for i >= 0 && ucd.IsZWJ(text[i]) {
		count++ // the ZWJ
		i--
		if i >= 0 && ucd.IsVariationSelector(text[i]) {
			count++
			i--
		}
		if i < 0 {
			break
		}
		count++ // the joined base codepoint
		i--
	}
	return count
}
