// SPDX-License-Identifier: Unlicense OR MIT

package editor

// gapBuffer is a rune gap buffer, adapted from editBuffer in
// _teacher_ref/widget/buffer.go: the same gap-at-caret, expand-on-demand
// design, generalized from bytes to runes since every other stage of this
// pipeline (itemize, shaping, linebreak, layout, caret) already works in
// codepoint offsets, and a multi-paragraph document needs stable codepoint
// indices more than it needs UTF-8 byte-packing.
type gapBuffer struct {
	gapstart, gapend int
	text             []rune
}

const minGap = 16

func newGapBuffer(s []rune) *gapBuffer {
	b := &gapBuffer{}
	b.prepend(0, s)
	return b
}

func (b *gapBuffer) len() int { return len(b.text) - b.gapLen() }

func (b *gapBuffer) gapLen() int { return b.gapend - b.gapstart }

// runeAt maps a document-space offset into the underlying storage index.
func (b *gapBuffer) runeAt(idx int) int {
	if idx >= b.gapstart {
		idx += b.gapLen()
	}
	return idx
}

// moveGap relocates the gap to caret, growing storage if needed, mirroring
// editBuffer.moveGap.
func (b *gapBuffer) moveGap(caret, space int) {
	if b.gapLen() < space {
		if space < minGap {
			space = minGap
		}
		txt := make([]rune, b.len()+space)
		gaplen := len(txt) - b.len()
		if caret > b.gapstart {
			copy(txt, b.text[:b.gapstart])
			copy(txt[caret+gaplen:], b.text[caret:])
			copy(txt[b.gapstart:], b.text[b.gapend:caret+b.gapLen()])
		} else {
			copy(txt, b.text[:caret])
			copy(txt[b.gapstart+gaplen:], b.text[b.gapend:])
			copy(txt[caret+gaplen:], b.text[caret:b.gapstart])
		}
		b.text = txt
		b.gapstart = caret
		b.gapend = b.gapstart + gaplen
		return
	}
	if caret > b.gapstart {
		copy(b.text[b.gapstart:], b.text[b.gapend:caret+b.gapLen()])
	} else {
		copy(b.text[caret+b.gapLen():], b.text[caret:b.gapstart])
	}
	l := b.gapLen()
	b.gapstart = caret
	b.gapend = b.gapstart + l
}

// deleteRunes removes n runes starting at caret (n may be negative to
// delete backward), mirroring editBuffer.deleteRunes.
func (b *gapBuffer) deleteRunes(caret, n int) {
	b.moveGap(caret, 0)
	for ; n < 0 && b.gapstart > 0; n++ {
		b.gapstart--
	}
	for ; n > 0 && b.gapend < len(b.text); n-- {
		b.gapend++
	}
}

// prepend inserts s at caret, leaving the gap immediately after it.
func (b *gapBuffer) prepend(caret int, s []rune) {
	b.moveGap(caret, len(s))
	copy(b.text[caret:], s)
	b.gapstart += len(s)
}

func (b *gapBuffer) slice(start, end int) []rune {
	out := make([]rune, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, b.text[b.runeAt(i)])
	}
	return out
}

func (b *gapBuffer) runeAtOffset(offset int) rune {
	return b.text[b.runeAt(offset)]
}

func (b *gapBuffer) runes() []rune {
	return b.slice(0, b.len())
}
