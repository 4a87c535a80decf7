package store

import (
	"testing"

	snapv1 "tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
)

func testBlocks(t *testing.T) *catalogs.BlockCatalog {
	t.Helper()
	cats, err := catalogs.Load("../../../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return &cats.Blocks
}

func TestExportAndImportGridRoundTrip(t *testing.T) {
	blocks := testBlocks(t)
	stone := blocks.Index["STONE"]
	dirt := blocks.Index["DIRT"]

	g := NewGrid(4, 3, blocks)
	g.Set(0, 2, stone)
	g.Set(3, 1, dirt)

	exported := ExportGrid(g)
	if exported.Cols != 4 || exported.Rows != 3 || len(exported.Cells) != 12 {
		t.Fatalf("unexpected exported shape: %+v", exported)
	}

	imported, err := ImportGrid(blocks, exported)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !imported.Equal(g) {
		t.Fatalf("imported grid differs from original")
	}
	if imported.Digest() != g.Digest() {
		t.Fatalf("digest mismatch after round trip")
	}
}

func TestImportGridRemapsPalette(t *testing.T) {
	blocks := testBlocks(t)
	in := snapv1.GridV1{
		Cols:    2,
		Rows:    1,
		Palette: []string{"STONE", "AIR"},
		Cells:   []uint16{1, 0},
	}
	g, err := ImportGrid(blocks, in)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if g.Get(0, 0) != catalogs.Air || g.Get(1, 0) != blocks.Index["STONE"] {
		t.Fatalf("palette not remapped: %v", g.Cells)
	}
}

func TestImportGridRejectsInvalidShape(t *testing.T) {
	blocks := testBlocks(t)
	cases := []snapv1.GridV1{
		{Cols: 2, Rows: 2, Palette: []string{"AIR"}, Cells: make([]uint16, 3)},
		{Cols: 1, Rows: 1, Palette: []string{"NOT_A_BLOCK"}, Cells: []uint16{0}},
		{Cols: 1, Rows: 1, Palette: []string{"AIR"}, Cells: []uint16{4}},
		{Cols: 0, Rows: 1},
	}
	for i, in := range cases {
		if _, err := ImportGrid(blocks, in); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
