// SPDX-License-Identifier: Unlicense OR MIT

// Package attrs holds the typographic attribute-span and decoration value
// types shared by the itemizer and layout assembler (spec.md §3). Gio keeps
// the analogous data (size, font, color, line height) as named fields
// scattered across text.Parameters/widget spans; this collects the closed
// per-span attribute set spec.md names into one value type, the way a span
// in a rich-text model naturally groups them.
package attrs

import (
	"github.com/inkwell/glyphflow/fontapi"
	"github.com/inkwell/glyphflow/fx"
)

// DecorationStyle is the visual treatment of a Decoration.
type DecorationStyle uint8

const (
	DecorationNone DecorationStyle = iota
	DecorationSolid
	DecorationDashed
	DecorationDotted
	DecorationWavy
)

// DecorationPosition selects which baseline-relative line a Decoration
// draws.
type DecorationPosition uint8

const (
	DecorationUnderline DecorationPosition = iota
	DecorationOverline
	DecorationStrikethrough
)

// Decoration describes one underline/overline/strikethrough request
// attached to a span, prior to being materialized against a shaped run.
type Decoration struct {
	Position  DecorationPosition
	Style     DecorationStyle
	Thickness fx.Int26_6
	Offset    fx.Int26_6
	Color     Color
}

// Color is a straight-alpha RGBA color, matching the {r,g,b,a} tuple spec.md
// names for fill_color/decoration color without committing to a specific
// color-management library the teacher doesn't carry either.
type Color struct {
	R, G, B, A uint8
}

// ObjectAlign selects how an inline ICON/OBJECT content run aligns to the
// surrounding text baseline.
type ObjectAlign uint8

const (
	ObjectAlignBaseline ObjectAlign = iota
	ObjectAlignTop
	ObjectAlignMiddle
	ObjectAlignBottom
)

// Span is a half-open codepoint range paired with the typographic
// attributes spec.md §3 lists. Spans in a Spans slice never overlap.
type Span struct {
	Start, End int // codepoints, End exclusive

	Family  fontapi.Typeface
	Style   fontapi.Style
	Weight  fontapi.Weight
	Stretch fontapi.Stretch
	Size    fx.Int26_6

	LetterSpacing fx.Int26_6
	WordSpacing   fx.Int26_6
	LineHeight    fx.Int26_6 // 0 means "use font metrics", matching Parameters.LineHeight in the teacher

	FillColor Color
	Decoration

	Features     []string // OpenType feature tags, e.g. "liga", "kern"
	ObjectAlign  ObjectAlign
	ObjectPad    fx.Int26_6
	LangOverride string
}

// Spans is a codepoint-ordered, non-overlapping list of Span.
type Spans []Span

// At returns the span covering codepoint cp, or the zero Span and false if
// cp falls in a gap (callers treat gaps as the document's default
// attributes).
func (s Spans) At(cp int) (Span, bool) {
	for _, span := range s {
		if cp >= span.Start && cp < span.End {
			return span, true
		}
	}
	return Span{}, false
}
