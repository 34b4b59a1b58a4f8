// SPDX-License-Identifier: Unlicense OR MIT

// Package fontapi describes the font and icon collaborators the layout
// pipeline queries but does not implement itself (spec.md §6.1, §6.3): font
// matching, metrics, glyph bounds, and the fallback hook. It mirrors
// gioui-gio/font's Face/Font split, adding font_stretch and the
// generation-tagged handle types spec.md §9's "32-bit handles as stable
// identities" redesign calls for.
package fontapi

import gotext "github.com/go-text/typesetting/font"

// Style is the font style (upright vs italic).
type Style int

const (
	Regular Style = iota
	Italic
)

// Weight is a font weight in CSS units, 400 subtracted so the zero value is
// normal text weight, matching gioui-gio/font.Weight.
type Weight int

const (
	Thin       Weight = -300
	ExtraLight Weight = -200
	Light      Weight = -100
	Normal     Weight = 0
	Medium     Weight = 100
	SemiBold   Weight = 200
	Bold       Weight = 300
	ExtraBold  Weight = 400
	Black      Weight = 500
)

// Stretch is a font width class in CSS percent-of-normal units, matching the
// 50-200 scale of font-stretch (100 = normal). spec.md §2 names font_stretch
// as part of every attribute span; the teacher has no equivalent since gio's
// bundled fonts don't vary width, so this is a direct spec.md addition.
type Stretch int

const (
	UltraCondensed Stretch = 50
	Condensed      Stretch = 75
	StretchNormal  Stretch = 100
	Expanded       Stretch = 125
	UltraExpanded  Stretch = 200
)

// Typeface identifies a particular typeface design. The empty string denotes
// the default typeface.
type Typeface string

// Font specifies a particular typeface variant, style, weight, and stretch.
type Font struct {
	Typeface Typeface
	Style    Style
	Weight   Weight
	Stretch  Stretch
}

// Face is an opaque handle to a loaded typeface, bridging to the external
// shaping engine's own face representation.
type Face interface {
	Face() gotext.Face
}

// FontHandle is a generation-tagged stable identity for a loaded face: the
// index survives collection mutation, and the generation lets a lookup of a
// handle from a collection that has since replaced that slot fail instead of
// silently returning the wrong font (spec.md §9).
type FontHandle struct {
	index      uint32
	generation uint32
}

// IsValid reports whether h refers to any slot at all (the zero FontHandle
// is never valid).
func (h FontHandle) IsValid() bool { return h.generation != 0 }

// IconHandle is the icon-collection analogue of FontHandle.
type IconHandle struct {
	index      uint32
	generation uint32
}

func (h IconHandle) IsValid() bool { return h.generation != 0 }

// Metrics reports the font-wide metrics get_metrics(font_handle, size)
// returns per spec.md §6.1.
type Metrics struct {
	Ascender, Descender, LineGap int32
	XHeight, CapHeight           int32
	UnitsPerEm                   int32
}

// FallbackFunc is invoked when an itemized run's resolved font lacks
// coverage for one or more of its codepoints; it may synchronously load and
// return a new font to retry shaping with. Matches the
// on_fallback(lang, script, family) -> bool shape in spec.md §6.1, recast as
// Go's idiomatic explicit-callback-with-return rather than an opaque bool
// out-param.
type FallbackFunc func(lang, script, family string) (FontHandle, bool)

// Collection is the font-matching and metrics collaborator the itemizer and
// layout assembler query. It is implemented outside this module; these
// packages only declare the capability they need from it, the way
// gioui-gio/font.Face declares Face() rather than embedding a concrete font
// implementation.
type Collection interface {
	// Match resolves a font query to zero or more candidate handles,
	// ordered best-match first.
	Match(script, lang string, family Typeface, style Style, weight Weight, stretch Stretch) []FontHandle
	// Metrics returns the font-wide metrics for handle at the given pixel
	// size.
	Metrics(handle FontHandle, pixelSize int) (Metrics, bool)
	// GlyphBounds returns the ink bounding box of gid in handle at the
	// given pixel size.
	GlyphBounds(handle FontHandle, gid uint32, pixelSize int) (minX, minY, maxX, maxY int32, ok bool)
	// Face resolves a handle to its shaping-engine face, or ok=false if the
	// handle is stale.
	Face(handle FontHandle) (gotext.Face, bool)
}
