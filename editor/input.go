// SPDX-License-Identifier: Unlicense OR MIT

package editor

import (
	"github.com/inkwell/glyphflow/caret"
	"github.com/inkwell/glyphflow/fx"
	"github.com/inkwell/glyphflow/ucd"
)

// Key is one of the navigation/edit keys spec.md §4.9 names. Modifier
// combinations (shift-extend) are passed as a separate bool rather than a
// bitmask, mirroring command's explicit key.ModShift check in
// _teacher_ref/widget/editor.go.
type Key uint8

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyBackspace
	KeyDelete
	KeyEnter
)

// HandleKey composes navigation with replace, matching
// Editor.command/Editor.processKey's dispatch in the teacher.
func (e *Editor) HandleKey(k Key, shift bool) {
	switch k {
	case KeyLeft:
		e.moveCaret(-1, shift, caret.Simple)
	case KeyRight:
		e.moveCaret(1, shift, caret.Simple)
	case KeyUp:
		e.moveLine(-1, shift)
	case KeyDown:
		e.moveLine(1, shift)
	case KeyHome:
		e.moveToLineEdge(true, shift)
	case KeyEnd:
		e.moveToLineEdge(false, shift)
	case KeyBackspace:
		e.Backspace()
	case KeyDelete:
		e.Delete()
	case KeyEnter:
		e.ReplaceRange(e.caretStart, e.caretEnd, []rune{'\n'})
	}
}

func (e *Editor) moveCaret(dir int, shift bool, mode caret.Mode) {
	p, idx := e.paragraphAt(e.caretEnd)
	if idx < 0 {
		return
	}
	local := caret.Position{Offset: e.caretEnd - p.TextStartOffset}
	if dir > 0 {
		local = p.Index.MoveForward(local, mode)
	} else {
		local = p.Index.MoveBackward(local, mode)
	}
	newPos := p.TextStartOffset + local.Offset
	e.setCaret(newPos, shift)
	e.hasPreferredX = false
}

// Delete removes one grapheme forward of the caret (or the selection, if
// any), per spec.md §4.9's "delete (forward) ... one grapheme to the
// right."
func (e *Editor) Delete() {
	if e.caretStart != e.caretEnd {
		e.Cut()
		return
	}
	text := e.buf.runes()
	if e.caretEnd >= len(text) {
		return
	}
	n := 1
	paraEnd := paragraphEndAfter(text, e.caretEnd)
	if clusters := ucd.GraphemeClusters(string(text[e.caretEnd:paraEnd])); len(clusters) > 0 {
		n = len([]rune(clusters[0]))
	}
	e.ReplaceRange(e.caretEnd, e.caretEnd+n, nil)
}

func (e *Editor) setCaret(pos int, shift bool) {
	pos = clamp(pos, 0, e.buf.len())
	e.caretEnd = pos
	if !shift {
		e.caretStart = pos
	}
}

// SetCaret positions the caret/selection directly (e.g. after a click),
// per spec.md §4.9's selection-capture behavior.
func (e *Editor) SetCaret(start, end int) {
	e.caretStart = clamp(start, 0, e.buf.len())
	e.caretEnd = clamp(end, 0, e.buf.len())
	e.hasPreferredX = false
}

func (e *Editor) paragraphAt(offset int) (*Paragraph, int) {
	for i := range e.paragraphs {
		p := &e.paragraphs[i]
		end := p.TextStartOffset + len(p.Text)
		if offset >= p.TextStartOffset && (offset < end || i == len(e.paragraphs)-1) {
			return p, i
		}
	}
	return nil, -1
}

// moveLine implements line up/down with the sticky preferred_x spec.md
// §4.7 describes: the caret's X at the start of vertical navigation is
// captured once and reused (clamped by hit-test) for every subsequent
// up/down until any non-vertical navigation resets it — per this module's
// Open Question decision (DESIGN.md), reset never happens on shift-click.
func (e *Editor) moveLine(dir int, shift bool) {
	p, pi := e.paragraphAt(e.caretEnd)
	if pi < 0 {
		return
	}
	cur := p.Index.Caret(caret.Position{Offset: e.caretEnd - p.TextStartOffset})
	if !e.hasPreferredX {
		e.preferredX = cur.X
		e.hasPreferredX = true
	}
	lineNum := lineContaining(p, e.caretEnd-p.TextStartOffset)
	targetLine := lineNum + dir
	targetP := p
	targetPi := pi
	for targetLine < 0 && targetPi > 0 {
		targetPi--
		targetP = &e.paragraphs[targetPi]
		targetLine += len(targetP.Lines)
	}
	for targetP != nil && targetLine >= len(targetP.Lines) && targetPi < len(e.paragraphs)-1 {
		targetLine -= len(targetP.Lines)
		targetPi++
		targetP = &e.paragraphs[targetPi]
	}
	if targetP == nil {
		return
	}
	targetLine = clamp(targetLine, 0, max(0, len(targetP.Lines)-1))
	y := targetP.Y
	for i := 0; i < targetLine; i++ {
		y += targetP.Lines[i].Descender - targetP.Lines[i].Ascender
	}
	pos := targetP.Index.HitTest(e.preferredX, y)
	e.setCaret(targetP.TextStartOffset+pos.Offset, shift)
}

func lineContaining(p *Paragraph, localOffset int) int {
	for i, l := range p.Lines {
		if localOffset >= l.TextStart && localOffset <= l.TextEnd {
			return i
		}
	}
	return 0
}

func (e *Editor) moveToLineEdge(home bool, shift bool) {
	p, _ := e.paragraphAt(e.caretEnd)
	if p == nil {
		return
	}
	lineNum := lineContaining(p, e.caretEnd-p.TextStartOffset)
	line := p.Lines[lineNum]
	pos := line.TextStart
	if !home {
		pos = line.TextEnd
	}
	e.setCaret(p.TextStartOffset+pos, shift)
	e.hasPreferredX = false
}

// Click handles spec.md §4.9's mouse click: single/double/triple click
// (within MultiClickWindow) select by character/word/line, shift extends,
// matching Editor.processPointer's click-count tracking in the teacher.
func (e *Editor) Click(x, y fx.Int26_6, shift bool, timeMillis int64) {
	offset := e.hitTest(x, y)
	if e.lastClickTime != 0 && timeMillis-e.lastClickTime <= MultiClickWindow && closeOffset(offset, e.lastClickOffset) {
		e.clickCount++
	} else {
		e.clickCount = 1
	}
	e.lastClickTime = timeMillis
	e.lastClickOffset = offset

	mode := SelectionMode(clampInt(e.clickCount-1, 0, 2))
	start, end := e.selectionUnit(offset, mode)
	if shift {
		end = offset
		start = e.caretStart
	}
	e.dragAnchorStart, e.dragAnchorEnd = start, end
	keepPreferredX := shift && e.hasPreferredX
	e.SetCaret(start, end)
	e.hasPreferredX = keepPreferredX
}

func closeOffset(a, b int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1
}

func clampInt(v, lo, hi int) int { return clamp(v, lo, hi) }

// Drag extends the selection from the anchor captured at the most recent
// Click, per spec.md §4.9's "drag extends relative to the initial
// selection captured at click."
func (e *Editor) Drag(x, y fx.Int26_6) {
	offset := e.hitTest(x, y)
	start, end := e.dragAnchorStart, e.dragAnchorEnd
	if offset < start {
		e.SetCaret(end, offset)
	} else {
		e.SetCaret(start, offset)
	}
}

func (e *Editor) hitTest(x, y fx.Int26_6) int {
	best := 0
	bestDist := fx.Int26_6(1 << 30)
	for i := range e.paragraphs {
		p := &e.paragraphs[i]
		if p.Index == nil {
			continue
		}
		for _, l := range p.Lines {
			d := l.BaselineY + p.Y - y
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				bestDist = d
				pos := p.Index.HitTest(x, l.BaselineY)
				best = p.TextStartOffset + pos.Offset
			}
		}
	}
	return best
}

func (e *Editor) selectionUnit(offset int, mode SelectionMode) (int, int) {
	p, _ := e.paragraphAt(offset)
	if p == nil {
		return offset, offset
	}
	local := offset - p.TextStartOffset
	switch mode {
	case SelectChar:
		next := p.Index.MoveForward(caret.Position{Offset: local}, caret.Simple)
		return offset, p.TextStartOffset + next.Offset
	case SelectWord:
		start := p.Index.MoveWord(local, false)
		end := p.Index.MoveWord(local, true)
		return p.TextStartOffset + start, p.TextStartOffset + end
	case SelectLine:
		lineNum := lineContaining(p, local)
		line := p.Lines[lineNum]
		return p.TextStartOffset + line.TextStart, p.TextStartOffset + line.TextEnd
	}
	return offset, offset
}
