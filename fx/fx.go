// SPDX-License-Identifier: Unlicense OR MIT

// Package fx provides the fixed-point primitives shared by every stage of
// the layout pipeline: itemization, shaping, line breaking, assembly, and
// caret geometry all exchange coordinates in these types.
package fx

import (
	"golang.org/x/image/math/fixed"
)

// Int26_6 is a 26.6 fixed-point pixel value, shared by every coordinate and
// advance in the pipeline.
type Int26_6 = fixed.Int26_6

// Point is a fixed-point 2D point.
type Point = fixed.Point26_6

// Rectangle is an axis-aligned fixed-point rectangle.
type Rectangle = fixed.Rectangle26_6

// I converts an int to an Int26_6.
func I(i int) Int26_6 { return fixed.I(i) }

// Direction is the resolved writing direction of a run of text. Mirrors the
// teacher's split between a local Direction enum (system.TextDirection) and
// the shaping engine's own di.Direction, translated at the shaping boundary
// rather than threaded everywhere.
type Direction uint8

const (
	LTR Direction = iota
	RTL
)

// FromBidiLevel derives a Direction from an embedding level: even is LTR,
// odd is RTL.
func FromBidiLevel(level int) Direction {
	if level%2 == 1 {
		return RTL
	}
	return LTR
}

// TowardOrigin reports whether glyphs in this direction advance toward the
// paragraph's logical origin (RTL) rather than away from it (LTR).
func (d Direction) TowardOrigin() bool {
	return d == RTL
}

func (d Direction) String() string {
	if d == RTL {
		return "RTL"
	}
	return "LTR"
}

// Min returns the smaller of a and b.
func Min(a, b Int26_6) Int26_6 {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Int26_6) Int26_6 {
	if a > b {
		return a
	}
	return b
}
