// SPDX-License-Identifier: Unlicense OR MIT

package bidi

import (
	"testing"

	"github.com/inkwell/glyphflow/fx"
)

func TestResolveAllLTR(t *testing.T) {
	p, err := Resolve([]rune("hello world"), Auto)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(p.Runs()) != 1 {
		t.Fatalf("expected 1 run for plain latin text, got %d", len(p.Runs()))
	}
	if p.Runs()[0].Direction != fx.LTR {
		t.Errorf("expected LTR run, got %v", p.Runs()[0].Direction)
	}
}

func TestResolveAllRTL(t *testing.T) {
	p, err := Resolve([]rune("שלום"), Auto)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(p.Runs()) != 1 {
		t.Fatalf("expected 1 run for plain hebrew text, got %d", len(p.Runs()))
	}
	if p.Runs()[0].Direction != fx.RTL {
		t.Errorf("expected RTL run, got %v", p.Runs()[0].Direction)
	}
}

func TestResolveMixed(t *testing.T) {
	text := []rune("hello שלום world")
	p, err := Resolve(text, Auto)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(p.Runs()) < 2 {
		t.Fatalf("expected at least 2 runs for mixed-direction text, got %d", len(p.Runs()))
	}
	last := 0
	for _, r := range p.Runs() {
		if r.Start != last {
			t.Errorf("run gap: expected start %d, got %d", last, r.Start)
		}
		last = r.End
	}
	if last != len(text) {
		t.Errorf("runs did not cover whole paragraph: covered %d of %d", last, len(text))
	}
}

func TestForcedBaseDirection(t *testing.T) {
	p, err := Resolve([]rune("123"), RTL)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(p.Levels()) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(p.Levels()))
	}
}
