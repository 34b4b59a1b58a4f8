// SPDX-License-Identifier: Unlicense OR MIT

// Package bidi resolves the Unicode Bidirectional Algorithm for a paragraph
// of text: per-codepoint embedding levels and the maximal directional runs
// derived from them (spec.md §4.2). It wraps golang.org/x/text/unicode/bidi
// exactly the way shaperImpl.splitBidi does in gotext.go, generalized from
// "one shaping.Input at a time" to "the whole paragraph up front", since
// itemize needs bidi runs before it has decided on script/font splits.
package bidi

import (
	"fmt"

	xbidi "golang.org/x/text/unicode/bidi"

	"github.com/inkwell/glyphflow/fx"
)

// BaseDirection is the paragraph's requested base direction, mirroring
// spec.md §4.2's AUTO/LTR/RTL modes.
type BaseDirection uint8

const (
	// Auto resolves the base direction from the first strong directional
	// character in the paragraph, falling back to LTR (matches
	// bidi.DefaultDirection's zero-value behavior when given no strong
	// character: x/text/unicode/bidi treats an all-neutral paragraph as
	// LTR).
	Auto BaseDirection = iota
	LTR
	RTL
)

// Run is a maximal span of codepoints sharing one resolved direction.
type Run struct {
	Start, End int // codepoint offsets, End exclusive
	Direction  fx.Direction
}

// Paragraph holds the resolved bidi state for one paragraph of text.
type Paragraph struct {
	levels []int
	runs   []Run
}

// Resolve runs the Unicode Bidirectional Algorithm over text and returns its
// per-codepoint levels and directional runs. text must not contain paragraph
// separators; splitting on those is the editor package's job (spec.md §3).
func Resolve(text []rune, base BaseDirection) (*Paragraph, error) {
	var p xbidi.Paragraph
	var opts []xbidi.Option
	switch base {
	case LTR:
		opts = append(opts, xbidi.DefaultDirection(xbidi.LeftToRight))
	case RTL:
		opts = append(opts, xbidi.DefaultDirection(xbidi.RightToLeft))
	}
	if err := p.SetString(string(text), opts...); err != nil {
		return nil, fmt.Errorf("bidi: resolving paragraph: %w", err)
	}
	ordering, err := p.Order()
	if err != nil {
		return nil, fmt.Errorf("bidi: ordering paragraph: %w", err)
	}

	out := &Paragraph{
		levels: make([]int, len(text)),
		runs:   make([]Run, 0, ordering.NumRuns()),
	}
	start := 0
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		_, endRune := run.Pos()
		end := endRune + 1
		dir := fx.LTR
		level := 0
		if run.Direction() == xbidi.RightToLeft {
			dir = fx.RTL
			level = 1
		}
		for cp := start; cp < end && cp < len(out.levels); cp++ {
			out.levels[cp] = level
		}
		out.runs = append(out.runs, Run{Start: start, End: end, Direction: dir})
		start = end
	}
	return out, nil
}

// Levels returns the resolved embedding level of each codepoint: even for
// LTR, odd for RTL, matching fx.FromBidiLevel's convention.
func (p *Paragraph) Levels() []int { return p.levels }

// Runs returns the paragraph's maximal directional runs in logical order.
func (p *Paragraph) Runs() []Run { return p.runs }

// LevelAt returns the embedding level of the codepoint at offset cp, or 0
// (LTR) if cp is out of range.
func (p *Paragraph) LevelAt(cp int) int {
	if cp < 0 || cp >= len(p.levels) {
		return 0
	}
	return p.levels[cp]
}
