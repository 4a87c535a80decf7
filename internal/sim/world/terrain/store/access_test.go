package store

import (
	"testing"

	"tilecraft.ai/internal/sim/catalogs"
)

func TestGetOutOfBoundsReturnsSentinel(t *testing.T) {
	blocks := testBlocks(t)
	g := NewGrid(8, 6, blocks)
	for _, c := range []Cell{{-1, 0}, {0, -1}, {8, 0}, {0, 6}, {-100, 1000}, {1 << 20, -(1 << 20)}} {
		if got := g.Get(c.Col, c.Row); got != blocks.Bedrock {
			t.Fatalf("Get(%d,%d)=%d want bedrock %d", c.Col, c.Row, got, blocks.Bedrock)
		}
	}
	if !g.Solid(-1, -1) {
		t.Fatalf("out-of-bounds cells must be impassable")
	}
}

func TestSetOutOfBoundsIsNoop(t *testing.T) {
	blocks := testBlocks(t)
	g := NewGrid(2, 2, blocks)
	before := g.Digest()
	g.Set(5, 5, blocks.Index["STONE"])
	g.Set(-1, 0, blocks.Index["STONE"])
	if g.Digest() != before {
		t.Fatalf("out-of-bounds Set mutated the grid")
	}
	if len(g.DrainChanges()) != 0 {
		t.Fatalf("out-of-bounds Set recorded a change")
	}
}

func TestFindSurfaceRow(t *testing.T) {
	blocks := testBlocks(t)
	g := NewGrid(3, 10, blocks)
	stone := blocks.Index["STONE"]
	water := blocks.Index["WATER"]
	for row := 4; row < 10; row++ {
		g.Set(0, row, stone)
	}
	// Liquid is open, so the surface is the first solid cell below it.
	g.Set(1, 2, water)
	g.Set(1, 3, stone)

	if got := g.FindSurfaceRow(0); got != 4 {
		t.Fatalf("surface col 0 = %d want 4", got)
	}
	if got := g.FindSurfaceRow(1); got != 3 {
		t.Fatalf("surface col 1 = %d want 3", got)
	}
	if got := g.FindSurfaceRow(2); got != 10 {
		t.Fatalf("empty column surface = %d want rows (10)", got)
	}
	if got := g.FindSurfaceRow(-1); got != 10 {
		t.Fatalf("out-of-range column surface = %d want 10", got)
	}
}

func TestDrainChangesSortedAndReset(t *testing.T) {
	blocks := testBlocks(t)
	g := NewGrid(4, 4, blocks)
	stone := blocks.Index["STONE"]
	g.Set(3, 1, stone)
	g.Set(0, 1, stone)
	g.Set(2, 0, stone)
	g.Set(2, 0, stone) // unchanged write is not recorded twice

	got := g.DrainChanges()
	want := []Cell{{2, 0}, {0, 1}, {3, 1}}
	if len(got) != len(want) {
		t.Fatalf("changes=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("changes=%v want %v", got, want)
		}
	}
	if again := g.DrainChanges(); again != nil {
		t.Fatalf("expected no changes after drain, got %v", again)
	}
	if g.Get(2, 0) == catalogs.Air {
		t.Fatalf("write lost")
	}
}

func TestDigestDistinguishesWideDimensions(t *testing.T) {
	blocks := testBlocks(t)
	// Same cell count, and equal dimensions once truncated to 16 bits.
	wide := NewGrid(1<<16+1, 1, blocks)
	tall := NewGrid(1, 1<<16+1, blocks)
	if wide.Digest() == tall.Digest() {
		t.Fatalf("%dx%d and %dx%d grids share a digest", wide.Cols, wide.Rows, tall.Cols, tall.Rows)
	}
}
